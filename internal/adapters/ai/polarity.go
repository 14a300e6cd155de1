package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
)

const polaritySystemPrompt = `You rate the tone of news about a company's suppliers.
Reply with a single number between -1 and 1: -1 is very negative (strikes, recalls,
bankruptcy, sanctions), 0 is neutral, 1 is very positive. Reply with the number only.`

// ChatCompleter is the part of the OpenAI client the scorer needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// PolarityScorer rates headline text with an OpenAI chat model
type PolarityScorer struct {
	client  ChatCompleter
	model   string
	timeout time.Duration
}

// NewPolarityScorer creates new OpenAI-backed polarity scorer
func NewPolarityScorer(apiKey, model string) *PolarityScorer {
	return NewPolarityScorerWithClient(openai.NewClient(apiKey), model)
}

// NewPolarityScorerWithClient wires an existing chat client
func NewPolarityScorerWithClient(client ChatCompleter, model string) *PolarityScorer {
	return &PolarityScorer{
		client:  client,
		model:   model,
		timeout: 30 * time.Second,
	}
}

// Polarity implements sentiment.Scorer
func (p *PolarityScorer) Polarity(ctx context.Context, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: polaritySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return 0, fmt.Errorf("polarity request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content

	logger.Debug("OpenAI polarity response",
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", content),
	)

	return parsePolarity(content)
}

func parsePolarity(content string) (float64, error) {
	field := strings.Trim(strings.TrimSpace(content), "`\"'.")
	if fields := strings.Fields(field); len(fields) > 0 {
		field = fields[0]
	}

	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse polarity %q: %w", content, err)
	}

	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return v, nil
}
