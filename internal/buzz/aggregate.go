package buzz

import (
	"sort"
	"strings"

	"github.com/quantlabs/nowcast/pkg/models"
)

// Aggregate groups raw mentions by (date, ticker): mentions is the row
// count, avg_sentiment the arithmetic mean across contributing
// documents, and sources the sorted deduplicated origin list joined
// with ";". The result is ordered by date then ticker and is never
// nil, so an empty day still yields a well-defined (empty) table.
func Aggregate(mentions []models.BuzzMention) []models.BuzzAggregate {
	type key struct {
		date   string
		ticker string
	}
	type acc struct {
		agg     models.BuzzAggregate
		sum     float64
		sources map[string]struct{}
	}

	groups := make(map[key]*acc)
	for _, m := range mentions {
		k := key{m.Date.Format("2006-01-02"), m.Ticker}
		a, ok := groups[k]
		if !ok {
			a = &acc{
				agg:     models.BuzzAggregate{Date: m.Date, Ticker: m.Ticker},
				sources: make(map[string]struct{}),
			}
			groups[k] = a
		}
		a.agg.Mentions++
		a.sum += m.Sentiment
		a.sources[m.Source] = struct{}{}
	}

	out := make([]models.BuzzAggregate, 0, len(groups))
	for _, a := range groups {
		a.agg.AvgSentiment = a.sum / float64(a.agg.Mentions)
		a.agg.Sources = joinSorted(a.sources)
		out = append(out, a.agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

func joinSorted(set map[string]struct{}) string {
	items := make([]string, 0, len(set))
	for s := range set {
		items = append(items, s)
	}
	sort.Strings(items)
	return strings.Join(items, ";")
}
