package market

import (
	"math"
	"testing"
	"time"

	"github.com/quantlabs/nowcast/pkg/models"
)

// makeBars generates a synthetic daily series for one ticker from the
// given closes, spacing dates one weekday apart.
func makeBars(ticker string, closes []float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:   date,
			Ticker: ticker,
			Open:   c * 0.99,
			High:   c * 1.01,
			Low:    c * 0.98,
			Close:  c,
			Volume: 1_000_000 + int64(i),
		}
		date = date.AddDate(0, 0, 1)
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
	}
	return bars
}

// trending returns n closes drifting upward with a small wobble.
func trending(n int, start float64) []float64 {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		if i%3 == 2 {
			price *= 0.995
		} else {
			price *= 1.01
		}
		closes[i] = price
	}
	return closes
}

func TestReturnWarmup(t *testing.T) {
	rows := BuildFeatures(makeBars("XYZ", []float64{10, 11, 9, 12, 13, 14, 15}))

	if !math.IsNaN(rows[0].R1) {
		t.Error("r1 must be NaN with no prior observation")
	}
	want := 11.0/10.0 - 1
	if math.Abs(rows[1].R1-want) > 1e-12 {
		t.Errorf("r1 on session 2 = %f, want %f", rows[1].R1, want)
	}

	// r5 needs 5 prior observations: undefined before session 6.
	for i := 0; i < 5; i++ {
		if !math.IsNaN(rows[i].R5) {
			t.Errorf("r5 defined at session %d, want NaN", i+1)
		}
	}
	if math.IsNaN(rows[5].R5) {
		t.Error("r5 should be defined at session 6")
	}
	wantR5 := 14.0/10.0 - 1
	if math.Abs(rows[5].R5-wantR5) > 1e-12 {
		t.Errorf("r5 = %f, want %f", rows[5].R5, wantR5)
	}
}

func TestShortSeriesAllNaN(t *testing.T) {
	rows := BuildFeatures(makeBars("XYZ", trending(4, 100)))
	for _, r := range rows {
		if !math.IsNaN(r.R5) || !math.IsNaN(r.R20) {
			t.Fatal("returns must never be computed without enough history")
		}
		if !math.IsNaN(r.Vol20) || !math.IsNaN(r.RSI14) {
			t.Fatal("vol20/rsi14 must be NaN on a 4-session series")
		}
	}
}

func TestRSIWarmupAndBounds(t *testing.T) {
	rows := BuildFeatures(makeBars("XYZ", trending(60, 100)))

	// 14 deltas exist only from the 15th row (index 14) onward.
	for i := 0; i < 14; i++ {
		if !math.IsNaN(rows[i].RSI14) {
			t.Errorf("rsi14 defined at index %d during warm-up", i)
		}
	}
	for i := 14; i < len(rows); i++ {
		v := rows[i].RSI14
		if math.IsNaN(v) {
			t.Errorf("rsi14 NaN at index %d after warm-up", i)
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("rsi14 = %f at index %d, outside [0,100]", v, i)
		}
	}
}

func TestRSISaturatesOnAllGains(t *testing.T) {
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		price += 1 // strictly rising: avg loss stays zero
		closes[i] = price
	}
	rows := BuildFeatures(makeBars("UP", closes))
	if got := rows[len(rows)-1].RSI14; got != 100 {
		t.Errorf("rsi14 = %f on an all-gain series, want 100", got)
	}
}

func TestVol20Warmup(t *testing.T) {
	rows := BuildFeatures(makeBars("XYZ", trending(30, 100)))

	// r1 is defined from index 1, so 20 r1 values exist at index 20.
	for i := 0; i < 20; i++ {
		if !math.IsNaN(rows[i].Vol20) {
			t.Errorf("vol20 defined at index %d during warm-up", i)
		}
	}
	if math.IsNaN(rows[20].Vol20) {
		t.Error("vol20 should be defined once 20 r1 values exist")
	}
	if rows[20].Vol20 < 0 {
		t.Error("vol20 must be non-negative")
	}
}

func TestHiLoDistances(t *testing.T) {
	rows := BuildFeatures(makeBars("XYZ", trending(40, 100)))

	for i, r := range rows {
		if i < 19 {
			if !math.IsNaN(r.Hi52dDist) || !math.IsNaN(r.Lo52dDist) {
				t.Errorf("hi/lo distances defined at index %d before 20 observations", i)
			}
			continue
		}
		if math.IsNaN(r.Hi52dDist) || math.IsNaN(r.Lo52dDist) {
			t.Errorf("hi/lo distances NaN at index %d", i)
			continue
		}
		if r.Hi52dDist > 1e-12 {
			t.Errorf("hi52d_dist = %f at index %d, must be <= 0", r.Hi52dDist, i)
		}
		if r.Lo52dDist < -1e-12 {
			t.Errorf("lo52d_dist = %f at index %d, must be >= 0", r.Lo52dDist, i)
		}
	}
}

func TestNoCrossTickerLeakage(t *testing.T) {
	a := makeBars("AAA", trending(25, 100))
	b := makeBars("BBB", trending(25, 5000))

	solo := BuildFeatures(a)
	mixed := BuildFeatures(append(append([]models.PriceBar{}, a...), b...))

	// AAA rows sort first; they must be identical with or without BBB.
	for i := range solo {
		got, want := mixed[i], solo[i]
		if got.Ticker != "AAA" {
			t.Fatalf("expected AAA at index %d, got %s", i, got.Ticker)
		}
		if !floatEqual(got.R20, want.R20) || !floatEqual(got.Vol20, want.Vol20) ||
			!floatEqual(got.RSI14, want.RSI14) || !floatEqual(got.Hi52d, want.Hi52d) {
			t.Fatalf("features for AAA changed when BBB was added at index %d", i)
		}
	}
}

func TestDuplicateBarsDropped(t *testing.T) {
	bars := makeBars("XYZ", trending(10, 100))
	dup := append(append([]models.PriceBar{}, bars...), bars[3])
	rows := BuildFeatures(dup)
	if len(rows) != 10 {
		t.Errorf("expected 10 rows after dedup, got %d", len(rows))
	}
}

func floatEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
