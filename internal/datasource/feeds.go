// Package datasource fetches the external raw material for the
// pipeline: RSS/Atom feed documents for the buzz extractor and daily
// OHLCV history from the Yahoo Finance chart API.
package datasource

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/quantlabs/nowcast/internal/buzz"
	"github.com/quantlabs/nowcast/internal/infra"
)

// ErrNoFeeds is returned when a FeedSource has nothing configured.
var ErrNoFeeds = errors.New("no feeds configured")

// FeedSource pulls documents from a configured list of RSS/Atom feeds.
// A failing feed is logged and skipped so one dead endpoint never
// blanks the whole day.
type FeedSource struct {
	urls    []string
	parser  *gofeed.Parser
	cache   *infra.Cache
	limiter *infra.RateLimiter
	log     *zap.Logger
	timeout time.Duration
}

// NewFeedSource creates a FeedSource over the given feed URLs.
func NewFeedSource(urls []string, ratePerSec int, timeout time.Duration, log *zap.Logger) *FeedSource {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedSource{
		urls:    urls,
		parser:  gofeed.NewParser(),
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(ratePerSec, time.Second),
		log:     log,
		timeout: timeout,
	}
}

// FetchDocuments fetches every configured feed and flattens the items
// into buzz documents.
func (f *FeedSource) FetchDocuments(ctx context.Context) ([]buzz.Document, error) {
	if len(f.urls) == 0 {
		return nil, ErrNoFeeds
	}

	var docs []buzz.Document
	for _, url := range f.urls {
		items, err := f.fetchFeed(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return docs, ctx.Err()
			}
			f.log.Warn("feed fetch failed, skipping",
				zap.String("url", url), zap.Error(err))
			continue
		}
		docs = append(docs, items...)
	}
	f.log.Info("feeds fetched",
		zap.Int("feeds", len(f.urls)), zap.Int("documents", len(docs)))
	return docs, nil
}

func (f *FeedSource) fetchFeed(ctx context.Context, url string) ([]buzz.Document, error) {
	if cached, ok := f.cache.Get(url); ok {
		return cached.([]buzz.Document), nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(url, fctx)
	if err != nil {
		return nil, err
	}

	source := feedLabel(feed, url)
	docs := make([]buzz.Document, 0, len(feed.Items))
	for _, item := range feed.Items {
		docs = append(docs, buzz.Document{
			Title:   item.Title,
			Summary: cleanHTML(item.Description),
			Source:  source,
		})
	}

	f.cache.Set(url, docs)
	return docs, nil
}

// feedLabel prefers the feed's own title, falling back to its host.
func feedLabel(feed *gofeed.Feed, url string) string {
	if t := strings.TrimSpace(feed.Title); t != "" {
		return t
	}
	s := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i > 0 {
		s = s[:i]
	}
	return s
}

// cleanHTML strips markup from feed summaries using goquery.
func cleanHTML(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
