package sentiment

import (
	"context"
	"strings"
)

// Analyzer performs lexicon-based polarity scoring tuned for supplier news.
// A text's polarity is the mean weight of the lexicon words it contains; a
// preceding negator ("not", "no", "never") flips and halves the next word.
type Analyzer struct {
	positiveWords map[string]float64
	negativeWords map[string]float64
	negators      map[string]struct{}
}

// NewAnalyzer creates new sentiment analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positiveWords: buildPositiveWords(),
		negativeWords: buildNegativeWords(),
		negators: map[string]struct{}{
			"not": {}, "no": {}, "never": {}, "without": {}, "isn't": {}, "wasn't": {}, "won't": {},
		},
	}
}

// Polarity implements Scorer
func (a *Analyzer) Polarity(_ context.Context, text string) (float64, error) {
	return a.AnalyzeSentiment(text), nil
}

// AnalyzeSentiment analyzes text and returns sentiment score (-1.0 to 1.0)
func (a *Analyzer) AnalyzeSentiment(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0.0
	}

	var score float64
	matchCount := 0
	negate := false

	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'()[]")

		if _, ok := a.negators[word]; ok {
			negate = true
			continue
		}

		weight, matched := a.positiveWords[word]
		if w, ok := a.negativeWords[word]; ok {
			weight, matched = -w, true
		}

		if matched {
			if negate {
				weight *= -0.5
			}
			score += weight
			matchCount++
		}
		negate = false
	}

	if matchCount == 0 {
		return 0.0
	}

	return clamp(score / float64(matchCount))
}

func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// buildPositiveWords returns positive keywords for supplier coverage
func buildPositiveWords() map[string]float64 {
	return map[string]float64{
		"growth":       0.6,
		"grow":         0.5,
		"grows":        0.5,
		"expand":       0.5,
		"expands":      0.5,
		"expansion":    0.5,
		"record":       0.5,
		"profit":       0.6,
		"profits":      0.6,
		"gain":         0.5,
		"gains":        0.5,
		"strong":       0.5,
		"award":        0.6,
		"awarded":      0.6,
		"wins":         0.6,
		"invest":       0.4,
		"investment":   0.4,
		"partnership":  0.5,
		"innovation":   0.5,
		"innovative":   0.5,
		"sustainable":  0.4,
		"recovery":     0.4,
		"upgrade":      0.5,
		"improved":     0.5,
		"improves":     0.5,
		"launch":       0.3,
		"launches":     0.3,
		"opens":        0.3,
		"success":      0.7,
		"successful":   0.7,
		"positive":     0.5,
		"approved":     0.5,
		"agreement":    0.4,
		"acquires":     0.3,
		"milestone":    0.5,
		"efficient":    0.4,
		"reliable":     0.5,
		"resilient":    0.5,
		"hiring":       0.4,
		"breakthrough": 0.7,
	}
}

// buildNegativeWords returns negative keywords for supplier coverage
func buildNegativeWords() map[string]float64 {
	return map[string]float64{
		"strike":        0.7,
		"strikes":       0.7,
		"shortage":      0.7,
		"shortages":     0.7,
		"delay":         0.5,
		"delays":        0.5,
		"delayed":       0.5,
		"disruption":    0.7,
		"disruptions":   0.7,
		"recall":        0.8,
		"recalls":       0.8,
		"bankruptcy":    1.0,
		"bankrupt":      1.0,
		"insolvency":    1.0,
		"lawsuit":       0.7,
		"sued":          0.7,
		"fined":         0.7,
		"penalty":       0.6,
		"fraud":         1.0,
		"scandal":       0.8,
		"probe":         0.5,
		"investigation": 0.5,
		"layoffs":       0.7,
		"cuts":          0.5,
		"closure":       0.7,
		"closes":        0.5,
		"shutdown":      0.7,
		"fire":          0.7,
		"explosion":     0.9,
		"spill":         0.8,
		"contamination": 0.9,
		"loss":          0.6,
		"losses":        0.6,
		"decline":       0.5,
		"declines":      0.5,
		"drop":          0.5,
		"plunge":        0.8,
		"weak":          0.5,
		"warning":       0.5,
		"downgrade":     0.6,
		"sanctions":     0.7,
		"tariff":        0.4,
		"tariffs":       0.4,
		"ban":           0.6,
		"crisis":        0.8,
		"risk":          0.3,
		"cyberattack":   0.9,
		"hack":          0.8,
		"breach":        0.8,
		"protest":       0.5,
		"default":       0.8,
	}
}
