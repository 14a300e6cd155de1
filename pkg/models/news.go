package models

import "time"

// Headline is a single article returned by a headline provider for one supplier.
// Summary may carry HTML markup; Published is kept verbatim as the feed reported it.
type Headline struct {
	Summary   string `json:"summary"`
	Title     string `json:"title"`
	Published string `json:"published"`
	Link      string `json:"link,omitempty"`
}

// SentimentRow is one headline tagged with its supplier and polarity.
type SentimentRow struct {
	Date      time.Time `json:"date"`
	Supplier  string    `json:"supplier"`
	Title     string    `json:"title"`
	Sentiment float64   `json:"sentiment"` // -1.0 .. 1.0
}

// IsNegative reports whether the row falls below the negative tone threshold
func (r SentimentRow) IsNegative() bool {
	return r.Sentiment < NegativeSentimentThreshold
}

// NegativeSentimentThreshold is the polarity below which a headline counts as negative.
const NegativeSentimentThreshold = -0.10
