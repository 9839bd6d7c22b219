// Package market derives technical features from daily OHLCV bars:
// simple returns, rolling volatility, Wilder RSI, and 52-week
// high/low distances. All derived fields are computed strictly per
// ticker from past observations only; rows with insufficient history
// carry NaN instead of being dropped.
package market

import (
	"math"
	"sort"

	"github.com/quantlabs/nowcast/pkg/models"
)

const (
	rsiPeriod    = 14
	volWindow    = 20
	yearWindow   = 252 // trading sessions in roughly one year
	yearMinObs   = 20  // minimum observations before hi/lo emit
	shortReturn  = 1
	mediumReturn = 5
	longReturn   = 20
)

// BuildFeatures computes derived features for every ticker in bars.
// Input may be unsorted and may contain duplicate (date, ticker) rows;
// duplicates are dropped keeping the first occurrence. The result is
// ordered by ticker then date ascending.
func BuildFeatures(bars []models.PriceBar) []models.FeatureRow {
	byTicker := groupBars(bars)

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]models.FeatureRow, 0, len(bars))
	for _, t := range tickers {
		out = append(out, buildTickerFeatures(byTicker[t])...)
	}
	return out
}

// groupBars splits bars per ticker, sorted by date with (date, ticker)
// duplicates removed.
func groupBars(bars []models.PriceBar) map[string][]models.PriceBar {
	byTicker := make(map[string][]models.PriceBar)
	for _, b := range bars {
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}

	for t, series := range byTicker {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		dedup := series[:0]
		for i, b := range series {
			if i > 0 && b.Date.Equal(series[i-1].Date) {
				continue
			}
			dedup = append(dedup, b)
		}
		byTicker[t] = dedup
	}
	return byTicker
}

// buildTickerFeatures derives all feature columns for one ticker's
// date-ascending series.
func buildTickerFeatures(series []models.PriceBar) []models.FeatureRow {
	n := len(series)
	rows := make([]models.FeatureRow, n)

	closes := make([]float64, n)
	for i, b := range series {
		rows[i] = models.NewFeatureRow(b)
		closes[i] = b.Close
	}

	for i := range rows {
		rows[i].R1 = simpleReturn(closes, i, shortReturn)
		rows[i].R5 = simpleReturn(closes, i, mediumReturn)
		rows[i].R20 = simpleReturn(closes, i, longReturn)
	}

	r1 := make([]float64, n)
	for i := range rows {
		r1[i] = rows[i].R1
	}
	vol := rollingStd(r1, volWindow)
	rsi := wilderRSI(closes, rsiPeriod)

	for i := range rows {
		rows[i].Vol20 = vol[i]
		rows[i].RSI14 = rsi[i]

		hi, lo := rollingExtremes(closes, i, yearWindow, yearMinObs)
		rows[i].Hi52d = hi
		rows[i].Lo52d = lo
		if !math.IsNaN(hi) {
			rows[i].Hi52dDist = closes[i]/hi - 1
		}
		if !math.IsNaN(lo) {
			rows[i].Lo52dDist = closes[i]/lo - 1
		}
	}

	return rows
}

// simpleReturn computes close[i]/close[i-k] - 1, NaN when fewer than
// k prior observations exist.
func simpleReturn(closes []float64, i, k int) float64 {
	if i < k {
		return math.NaN()
	}
	prev := closes[i-k]
	if prev == 0 {
		return math.NaN()
	}
	return closes[i]/prev - 1
}

// rollingStd computes the trailing sample standard deviation over a
// fixed window; NaN until the window holds `window` defined values.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}

		sum, count := 0.0, 0
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				count = -1
				break
			}
			sum += values[j]
			count++
		}
		if count != window {
			continue
		}

		mean := sum / float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// wilderRSI computes the Relative Strength Index with Wilder's
// exponential smoothing (alpha = 1/period) over gains and losses,
// starting the recursion at the first price delta and emitting values
// only after `period` deltas exist. A zero average loss saturates the
// index at 100 instead of dividing by zero.
func wilderRSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if n < 2 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64

	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i == 1 {
			avgGain = gain
			avgLoss = loss
		} else {
			avgGain = (1-alpha)*avgGain + alpha*gain
			avgLoss = (1-alpha)*avgLoss + alpha*loss
		}

		// i deltas observed so far; hold off until the warm-up is done.
		if i < period {
			continue
		}

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// rollingExtremes returns the max and min close over the trailing
// `window` observations ending at i, requiring at least minObs
// observations before emitting a value.
func rollingExtremes(closes []float64, i, window, minObs int) (hi, lo float64) {
	if i+1 < minObs {
		return math.NaN(), math.NaN()
	}

	start := i - window + 1
	if start < 0 {
		start = 0
	}

	hi, lo = closes[start], closes[start]
	for j := start + 1; j <= i; j++ {
		if closes[j] > hi {
			hi = closes[j]
		}
		if closes[j] < lo {
			lo = closes[j]
		}
	}
	return hi, lo
}
