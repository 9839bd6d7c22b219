// Package models defines the core data structures shared across the
// nowcast pipeline stages.
package models

import (
	"math"
	"time"
)

// PriceBar is one daily OHLCV observation for a ticker.
// (Date, Ticker) uniquely identifies a bar.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// FeatureRow is a PriceBar extended with derived technical features.
// Derived fields use NaN for "not yet defined" (insufficient history);
// the feature store maps NaN to SQL NULL and back.
type FeatureRow struct {
	PriceBar

	R1    float64 `json:"r1"`    // 1-session simple return
	R5    float64 `json:"r5"`    // 5-session simple return
	R20   float64 `json:"r20"`   // 20-session simple return
	RSI14 float64 `json:"rsi14"` // Wilder RSI, 14-session smoothing
	Vol20 float64 `json:"vol20"` // 20-session rolling std-dev of R1

	Hi52d     float64 `json:"hi52d"`      // 252-session rolling max close
	Lo52d     float64 `json:"lo52d"`      // 252-session rolling min close
	Hi52dDist float64 `json:"hi52d_dist"` // close/hi52d - 1, always <= 0
	Lo52dDist float64 `json:"lo52d_dist"` // close/lo52d - 1, always >= 0
}

// FeatureColumnNames is the exact persisted column set, in order.
var FeatureColumnNames = []string{
	"date", "ticker",
	"open", "high", "low", "close", "volume",
	"r1", "r5", "r20", "rsi14", "vol20",
	"hi52d", "lo52d", "hi52d_dist", "lo52d_dist",
}

// NewFeatureRow returns a FeatureRow for the bar with every derived
// field initialized to NaN.
func NewFeatureRow(bar PriceBar) FeatureRow {
	nan := math.NaN()
	return FeatureRow{
		PriceBar:  bar,
		R1:        nan,
		R5:        nan,
		R20:       nan,
		RSI14:     nan,
		Vol20:     nan,
		Hi52d:     nan,
		Lo52d:     nan,
		Hi52dDist: nan,
		Lo52dDist: nan,
	}
}
