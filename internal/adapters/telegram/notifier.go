package telegram

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/internal/adapters/config"
	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// MessageSender is the part of tgbotapi.BotAPI used for alerts
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var alertTemplate = template.Must(template.New("high_risk").Funcs(template.FuncMap{
	"md": func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) },
}).Parse(`🚨 *{{len .Scores}} supplier(s) at or above {{printf "%.1f" .Threshold}}*
_{{.GeneratedAt}} · {{.LookbackDays}}d window_
{{range .Scores}}
• *{{md .Supplier}}* ({{md .Country}}): {{printf "%.1f" .RiskScore}}
  sent {{printf "%.1f" .RiskSent}} · geo {{printf "%.1f" .RiskGeo}} · reg {{printf "%.1f" .RiskReg}}{{end}}
{{if .Advisories}}
⚠️ {{len .Advisories}} advisory notice(s) during this run{{end}}`))

// Notifier posts high-risk suppliers to a Telegram chat
type Notifier struct {
	api       MessageSender
	chatID    int64
	threshold float64
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Float64("threshold", cfg.AlertThreshold),
	)

	return NewNotifierWithSender(bot, cfg.ChatID, cfg.AlertThreshold), nil
}

// NewNotifierWithSender creates notifier over an existing sender
func NewNotifierWithSender(api MessageSender, chatID int64, threshold float64) *Notifier {
	return &Notifier{api: api, chatID: chatID, threshold: threshold}
}

// HighRisk returns the scores at or above the alert threshold, keeping report order
func (n *Notifier) HighRisk(report *models.Report) []models.CompositeScore {
	var out []models.CompositeScore
	for _, s := range report.Scores {
		if s.RiskScore >= n.threshold {
			out = append(out, s)
		}
	}
	return out
}

// SendHighRiskAlert sends one message listing every high-risk supplier. Nothing is sent when none qualify.
func (n *Notifier) SendHighRiskAlert(ctx context.Context, report *models.Report) error {
	flagged := n.HighRisk(report)
	if len(flagged) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := n.render(report, flagged)
	if err != nil {
		return err
	}

	if err := n.sendMessageMarkdown(text); err != nil {
		return err
	}

	logger.Info("high-risk alert sent",
		zap.Int("suppliers", len(flagged)),
		zap.Int64("chat_id", n.chatID),
	)
	return nil
}

func (n *Notifier) render(report *models.Report, flagged []models.CompositeScore) (string, error) {
	var sb strings.Builder
	err := alertTemplate.Execute(&sb, map[string]interface{}{
		"Scores":       flagged,
		"Threshold":    n.threshold,
		"GeneratedAt":  report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"),
		"LookbackDays": report.LookbackDays,
		"Advisories":   report.Advisories,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render alert: %w", err)
	}
	return sb.String(), nil
}

func (n *Notifier) sendMessageMarkdown(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err),
		)
		return err
	}

	return nil
}
