// Package dataset assembles the supervised learning set: next-session
// direction labels with a strict leakage boundary, a left join against
// buzz aggregates, and a time-ordered train/holdout split.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/quantlabs/nowcast/pkg/models"
	"github.com/quantlabs/nowcast/pkg/utils"
)

// ErrEmptySplit signals that a time split left one side with no rows.
var ErrEmptySplit = errors.New("empty train or holdout partition")

// Assemble labels feature rows with the next-session return and joins
// buzz aggregates. The terminal observation per ticker has no future
// close to label and is dropped: that exclusion is the leakage
// boundary. Unmatched buzz fields default to zero ("no observed
// buzz"), never NaN.
func Assemble(features []models.FeatureRow, buzz []models.BuzzAggregate) []models.TrainingRow {
	byTicker := make(map[string][]models.FeatureRow)
	for _, f := range features {
		byTicker[f.Ticker] = append(byTicker[f.Ticker], f)
	}

	buzzIdx := mergeBuzz(buzz)

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	out := make([]models.TrainingRow, 0, len(features))
	for _, t := range tickers {
		series := byTicker[t]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})

		// The label source is shifted strictly forward: row t is
		// labeled from close[t+1], so the last row is never labeled.
		for i := 0; i < len(series)-1; i++ {
			cur, next := series[i], series[i+1]
			if cur.Close == 0 {
				continue
			}
			nextRet := next.Close/cur.Close - 1

			row := models.TrainingRow{
				FeatureRow: cur,
				NextRet:    nextRet,
			}
			if nextRet > 0 {
				row.Y = 1
			}

			if b, ok := buzzIdx[buzzKey(cur.Date, cur.Ticker)]; ok {
				row.Mentions = float64(b.Mentions)
				row.AvgSentiment = b.AvgSentiment
			}

			out = append(out, row)
		}
	}
	return out
}

// LatestRows returns unlabeled rows for the most recent feature date,
// joined with that date's buzz. The terminal session per ticker never
// carries a label, so the prediction surface scores these rows rather
// than the newest labeled ones.
func LatestRows(features []models.FeatureRow, buzz []models.BuzzAggregate) []models.TrainingRow {
	if len(features) == 0 {
		return nil
	}
	var max time.Time
	for _, f := range features {
		if f.Date.After(max) {
			max = f.Date
		}
	}

	buzzIdx := mergeBuzz(buzz)

	var out []models.TrainingRow
	for _, f := range features {
		if !f.Date.Equal(max) {
			continue
		}
		row := models.TrainingRow{FeatureRow: f}
		if b, ok := buzzIdx[buzzKey(f.Date, f.Ticker)]; ok {
			row.Mentions = float64(b.Mentions)
			row.AvgSentiment = b.AvgSentiment
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// mergeBuzz rolls up aggregates that span multiple daily files for
// the same (date, ticker): mention counts are summed and sentiment is
// averaged across files.
func mergeBuzz(buzz []models.BuzzAggregate) map[string]models.BuzzAggregate {
	type acc struct {
		agg   models.BuzzAggregate
		sum   float64
		files int
	}
	accs := make(map[string]*acc, len(buzz))
	for _, b := range buzz {
		k := buzzKey(b.Date, b.Ticker)
		a, ok := accs[k]
		if !ok {
			a = &acc{agg: b}
			accs[k] = a
			a.agg.Mentions = 0
		}
		a.agg.Mentions += b.Mentions
		a.sum += b.AvgSentiment
		a.files++
	}

	out := make(map[string]models.BuzzAggregate, len(accs))
	for k, a := range accs {
		a.agg.AvgSentiment = a.sum / float64(a.files)
		out[k] = a.agg
	}
	return out
}

func buzzKey(date time.Time, ticker string) string {
	return utils.FormatDate(date) + "|" + ticker
}

// TimeSplit partitions rows at cutoff = max(date) − holdoutBDays
// business days: dates at or before the cutoff train, later dates are
// held out. Order is preserved; there is no shuffling. An empty side
// is an explicit error, not a silent degenerate training set.
func TimeSplit(rows []models.TrainingRow, holdoutBDays int) (train, holdout []models.TrainingRow, err error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: no labeled rows to split", ErrEmptySplit)
	}

	maxDate := rows[0].Date
	for _, r := range rows {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	cutoff := utils.SubBusinessDays(maxDate, holdoutBDays)

	for _, r := range rows {
		if r.Date.After(cutoff) {
			holdout = append(holdout, r)
		} else {
			train = append(train, r)
		}
	}

	if len(train) == 0 || len(holdout) == 0 {
		return nil, nil, fmt.Errorf(
			"%w: insufficient history for a %d business day holdout (cutoff %s, %d train / %d holdout)",
			ErrEmptySplit, holdoutBDays, utils.FormatDate(cutoff), len(train), len(holdout),
		)
	}
	return train, holdout, nil
}

// Cutoff reports the split boundary used for the rows and window,
// for inclusion in run reports.
func Cutoff(rows []models.TrainingRow, holdoutBDays int) time.Time {
	if len(rows) == 0 {
		return time.Time{}
	}
	maxDate := rows[0].Date
	for _, r := range rows {
		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}
	return utils.SubBusinessDays(maxDate, holdoutBDays)
}
