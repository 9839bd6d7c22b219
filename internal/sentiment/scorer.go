// Package sentiment provides a deterministic, offline lexicon scorer.
// It maps arbitrary text to a compound score in [-1, 1] where negative
// is bearish and positive is bullish.
package sentiment

import "strings"

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "soar": 0.7,
	"upbeat": 0.5, "positive": 0.4, "growth": 0.4, "upgrade": 0.6,
	"outperform": 0.6, "buy": 0.5, "strong": 0.4, "recovery": 0.5,
	"breakout": 0.6, "record high": 0.7, "all-time high": 0.7,
	"beat": 0.5, "beats estimate": 0.6, "exceeds": 0.5,
	"expansion": 0.4, "profit": 0.3, "dividend": 0.4, "jump": 0.5,
	"gain": 0.4, "climb": 0.4, "optimistic": 0.5,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "correction": 0.5, "tumble": 0.6,
	"default": 0.7, "fraud": 0.8, "scam": 0.8, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
	"recession": 0.6, "layoff": 0.5, "bankruptcy": 0.8,
}

// Scorer scores text against the keyword lexicons. The zero value is
// unusable; construct with NewScorer.
type Scorer struct {
	bullish map[string]float64
	bearish map[string]float64
}

// NewScorer returns a scorer backed by the default lexicons.
func NewScorer() *Scorer {
	return &Scorer{bullish: bullishWords, bearish: bearishWords}
}

// Score returns a compound sentiment score in [-1, 1] for the text.
// Text with no lexicon hits scores exactly 0.
func (s *Scorer) Score(text string) float64 {
	lower := strings.ToLower(text)

	bull := 0.0
	bear := 0.0
	for word, weight := range s.bullish {
		if strings.Contains(lower, word) {
			bull += weight
		}
	}
	for word, weight := range s.bearish {
		if strings.Contains(lower, word) {
			bear += weight
		}
	}

	total := bull + bear
	if total == 0 {
		return 0
	}

	// Net score normalized by total keyword weight, so the result is
	// bounded in [-1, 1] by construction.
	return (bull - bear) / total
}
