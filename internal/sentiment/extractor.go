package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// ErrInvalidTimestamp is returned when a headline's publication time cannot be parsed
var ErrInvalidTimestamp = errors.New("invalid headline timestamp")

// Scorer rates plain text from -1.0 (negative) to 1.0 (positive)
type Scorer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// publishedLayouts covers RSS (RFC 822/1123 variants), Atom (RFC 3339) and plain dates
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 MST",
	"Mon, 2 Jan 2006 15:04:05 UT",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParsePublished parses a feed timestamp
func ParsePublished(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// Extractor turns raw headlines into sentiment rows
type Extractor struct {
	scorer Scorer
}

// NewExtractor creates new extractor backed by scorer
func NewExtractor(scorer Scorer) *Extractor {
	return &Extractor{scorer: scorer}
}

// Extract returns one row per headline, in input order, tagged with supplier.
// Text problems degrade a row to sentiment 0.0; an unparseable publication
// time fails the whole batch since rows are later grouped by date.
func (e *Extractor) Extract(ctx context.Context, headlines []models.Headline, supplier string) ([]models.SentimentRow, error) {
	rows := make([]models.SentimentRow, 0, len(headlines))

	for i, h := range headlines {
		date, err := ParsePublished(h.Published)
		if err != nil {
			return nil, fmt.Errorf("headline %d of %s (%q): %w", i, supplier, h.Title, err)
		}

		rows = append(rows, models.SentimentRow{
			Supplier:  supplier,
			Date:      date,
			Title:     h.Title,
			Sentiment: e.score(ctx, supplier, h.Summary),
		})
	}

	return rows, nil
}

func (e *Extractor) score(ctx context.Context, supplier, summary string) float64 {
	text := PlainText(summary)
	if text == "" {
		return 0.0
	}

	polarity, err := e.scorer.Polarity(ctx, text)
	if err != nil {
		logger.Warn("sentiment scoring failed, using neutral polarity",
			zap.String("supplier", supplier),
			zap.Error(err),
		)
		return 0.0
	}
	if math.IsNaN(polarity) {
		return 0.0
	}

	return clamp(polarity)
}
