package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantlabs/nowcast/internal/infra"
	"github.com/quantlabs/nowcast/pkg/models"
	"github.com/quantlabs/nowcast/pkg/utils"
)

var chartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s?range=%s&interval=1d&events=div%%2Csplit"

// validPeriods are the history ranges the chart API accepts here.
var validPeriods = map[string]bool{"6mo": true, "1y": true, "2y": true, "5y": true}

// PriceSource fetches daily OHLCV history from the Yahoo Finance v8
// chart API.
type PriceSource struct {
	cache   *infra.Cache
	limiter *infra.RateLimiter
	log     *zap.Logger
}

// NewPriceSource creates a PriceSource with its own cache and limiter.
func NewPriceSource(log *zap.Logger) *PriceSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceSource{
		cache:   infra.NewCache(15 * time.Minute),
		limiter: infra.NewRateLimiter(5, time.Second),
		log:     log,
	}
}

// --- chart API response types ---

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// History fetches daily bars for one symbol over the given period.
func (p *PriceSource) History(ctx context.Context, symbol, period string) ([]models.PriceBar, error) {
	if !validPeriods[period] {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	symbol = utils.NormalizeTicker(symbol)

	cacheKey := fmt.Sprintf("hist:%s:%s", symbol, period)
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.([]models.PriceBar), nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(chartURL, symbol, period)
	body, status, err := infra.DoGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read chart %s: %w", symbol, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("chart %s: status %d", symbol, status)
	}

	var resp chartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: empty result", symbol)
	}

	bars := parseBars(symbol, resp.Chart.Result[0])
	p.cache.Set(cacheKey, bars)
	return bars, nil
}

// parseBars converts a chart result into daily bars, dropping sessions
// with a missing close.
func parseBars(symbol string, res chartResult) []models.PriceBar {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := models.PriceBar{
			Date:   utils.DateOnly(time.Unix(ts, 0).In(utils.Eastern)),
			Ticker: symbol,
			Close:  *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

// HistoryBatch fetches history for many symbols in chunks, with up to
// concurrency chunks in flight. Failed symbols are logged and skipped:
// the result is whatever succeeded, sorted by ticker then date.
func (p *PriceSource) HistoryBatch(ctx context.Context, symbols []string, period string, chunkSize, concurrency int) ([]models.PriceBar, error) {
	if !validPeriods[period] {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	if chunkSize <= 0 {
		chunkSize = 40
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	var all []models.PriceBar
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(symbols); start += chunkSize {
		end := start + chunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		g.Go(func() error {
			for _, sym := range chunk {
				bars, err := p.History(gctx, sym, period)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					p.log.Warn("history fetch failed, skipping",
						zap.String("symbol", sym), zap.Error(err))
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				all = append(all, bars...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(a, b int) bool {
		if all[a].Ticker != all[b].Ticker {
			return all[a].Ticker < all[b].Ticker
		}
		return all[a].Date.Before(all[b].Date)
	})

	p.log.Info("history batch complete",
		zap.Int("symbols", len(symbols)),
		zap.Int("failed", failed),
		zap.Int("bars", len(all)))
	return all, nil
}
