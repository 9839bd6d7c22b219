package models

import "time"

// BuzzMention is one matched ticker in one document: a document yields
// at most one mention per distinct ticker, regardless of how many times
// the symbol appears in the text.
type BuzzMention struct {
	Date      time.Time `json:"date"`
	Ticker    string    `json:"ticker"`
	Sentiment float64   `json:"sentiment"` // compound score in [-1,1]
	Source    string    `json:"source"`
	Title     string    `json:"title"` // truncated to 200 runes
}

// BuzzAggregate is the per-(date,ticker) rollup of raw mentions.
type BuzzAggregate struct {
	Date         time.Time `json:"date"`
	Ticker       string    `json:"ticker"`
	Mentions     int       `json:"mentions"`
	AvgSentiment float64   `json:"avg_sentiment"`
	Sources      string    `json:"sources"` // sorted, deduplicated, ";"-joined
}

// BuzzColumnNames is the daily buzz CSV schema, in order.
var BuzzColumnNames = []string{"date", "ticker", "mentions", "avg_sentiment", "sources"}
