// Package buzz turns raw text documents into per-(date, ticker)
// mention aggregates. Ticker detection is a replaceable heuristic:
// a bounded uppercase token pattern filtered by a stoplist and the
// ticker universe, not a full NLP solution.
package buzz

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/quantlabs/nowcast/internal/universe"
	"github.com/quantlabs/nowcast/pkg/models"
)

// Document is one text item from a monitored source. A missing
// summary is represented as the empty string.
type Document struct {
	Title   string
	Summary string
	Source  string
}

// Scorer maps text to a compound sentiment score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// tickerPattern matches an optional leading "$" followed by 1-5
// uppercase letters. Adjacency to other letters/digits is rejected
// separately in candidates, since RE2 has no lookarounds.
var tickerPattern = regexp.MustCompile(`\$?[A-Z]{1,5}`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Extractor detects ticker mentions in documents and scores their
// sentiment. Construct with NewExtractor.
type Extractor struct {
	uni    *universe.Universe
	scorer Scorer
	stop   map[string]struct{}
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithStoplist replaces the default stoplist of common words and
// acronyms that look like tickers.
func WithStoplist(words []string) Option {
	return func(e *Extractor) {
		e.stop = make(map[string]struct{}, len(words))
		for _, w := range words {
			e.stop[strings.ToUpper(w)] = struct{}{}
		}
	}
}

// defaultStoplist mirrors the config default; kept here so the
// extractor is usable standalone in tests.
var defaultStoplist = []string{
	"A", "I", "AM", "ALL", "FOR", "EVER", "DD", "YOLO",
	"CEO", "CFO", "OPEN", "AI", "USA", "IPO", "EPS", "HOME",
}

// NewExtractor builds an extractor bound to a universe and scorer.
func NewExtractor(uni *universe.Universe, scorer Scorer, opts ...Option) *Extractor {
	e := &Extractor{uni: uni, scorer: scorer}
	WithStoplist(defaultStoplist)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract scans each document for universe tickers and returns one
// mention per (document, distinct ticker) pair, all dated to date.
// Documents with no text or no matches contribute nothing.
func (e *Extractor) Extract(date time.Time, docs []Document) []models.BuzzMention {
	mentions := make([]models.BuzzMention, 0)

	for _, doc := range docs {
		title := cleanText(doc.Title)
		summary := cleanText(doc.Summary)
		text := strings.TrimSpace(title + ". " + summary)
		if text == "." {
			continue
		}

		found := e.matchTickers(text)
		if len(found) == 0 {
			continue
		}

		// One sentiment score per document, shared by every ticker
		// it mentions.
		score := e.scorer.Score(text)

		for _, t := range found {
			mentions = append(mentions, models.BuzzMention{
				Date:      date,
				Ticker:    t,
				Sentiment: score,
				Source:    doc.Source,
				Title:     truncate(title, 200),
			})
		}
	}

	return mentions
}

// matchTickers returns the sorted distinct universe tickers in text.
func (e *Extractor) matchTickers(text string) []string {
	upper := strings.ToUpper(text)

	seen := make(map[string]struct{})
	for _, loc := range tickerPattern.FindAllStringIndex(upper, -1) {
		start, end := loc[0], loc[1]

		// Reject tokens embedded in longer words or numbers, so "AI"
		// inside "MAIN" never matches.
		if start > 0 && isWordByte(upper[start-1]) {
			continue
		}
		if end < len(upper) && upper[end] >= 'A' && upper[end] <= 'Z' {
			continue
		}

		cand := strings.TrimPrefix(upper[start:end], "$")
		if cand == "" {
			continue
		}
		if _, stopped := e.stop[cand]; stopped {
			continue
		}
		if !e.uni.Contains(cand) {
			continue
		}
		seen[cand] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// cleanText collapses whitespace runs and trims the result.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func isWordByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
