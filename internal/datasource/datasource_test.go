package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Markets</title>
<item><title>AAPL rallies</title><description>&lt;p&gt;Shares of &lt;b&gt;Apple&lt;/b&gt; jumped.&lt;/p&gt;</description></item>
<item><title>TSLA slides</title><description>Plain text summary</description></item>
</channel></rss>`

func TestFetchDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	fs := NewFeedSource([]string{srv.URL}, 10, 5*time.Second, nil)
	docs, err := fs.FetchDocuments(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Source != "Test Markets" {
		t.Fatalf("source = %q, want feed title", docs[0].Source)
	}
	if docs[0].Summary != "Shares of Apple jumped." {
		t.Fatalf("summary not HTML-stripped: %q", docs[0].Summary)
	}
}

func TestFetchDocumentsSkipsFailedFeed(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleRSS)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	fs := NewFeedSource([]string{bad.URL, good.URL}, 10, 5*time.Second, nil)
	docs, err := fs.FetchDocuments(context.Background())
	if err != nil {
		t.Fatalf("a failed feed must not be fatal: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected documents from healthy feed, got %d", len(docs))
	}
}

func TestFetchDocumentsNoFeeds(t *testing.T) {
	fs := NewFeedSource(nil, 10, time.Second, nil)
	if _, err := fs.FetchDocuments(context.Background()); err != ErrNoFeeds {
		t.Fatalf("expected ErrNoFeeds, got %v", err)
	}
}

func TestCleanHTML(t *testing.T) {
	cases := map[string]string{
		"plain text":                  "plain text",
		"<p>hello <b>world</b></p>":   "hello world",
		"  spaced  ":                  "spaced",
		"":                            "",
		"A &amp; B":                   "A & B",
	}
	for in, want := range cases {
		if got := cleanHTML(in); got != want {
			t.Errorf("cleanHTML(%q) = %q, want %q", in, got, want)
		}
	}
}

const sampleChart = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},
"timestamp":[1736139600,1736226000,1736312400],
"indicators":{"quote":[{
"open":[100,101,null],"high":[102,103,null],"low":[99,100,null],
"close":[101,102,null],"volume":[1000,2000,null]}]}}],"error":null}}`

func TestHistoryParsesBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleChart)
	}))
	defer srv.Close()

	old := chartURL
	chartURL = srv.URL + "/%s?range=%s"
	defer func() { chartURL = old }()

	ps := NewPriceSource(nil)
	bars, err := ps.History(context.Background(), "aapl", "1y")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// Third session has a null close and must be dropped.
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Ticker != "AAPL" {
		t.Fatalf("ticker not normalized: %q", bars[0].Ticker)
	}
	if bars[0].Close != 101 || bars[1].Close != 102 {
		t.Fatalf("closes = %v %v", bars[0].Close, bars[1].Close)
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Fatal("bars out of order")
	}
}

func TestHistoryRejectsBadPeriod(t *testing.T) {
	ps := NewPriceSource(nil)
	if _, err := ps.History(context.Background(), "AAPL", "3w"); err == nil {
		t.Fatal("expected error for unsupported period")
	}
}

func TestHistoryBatchPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/BAD" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, sampleChart)
	}))
	defer srv.Close()

	old := chartURL
	chartURL = srv.URL + "/%s?range=%s"
	defer func() { chartURL = old }()

	ps := NewPriceSource(nil)
	bars, err := ps.HistoryBatch(context.Background(), []string{"AAPL", "BAD", "MSFT"}, "2y", 2, 2)
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}
	// Two healthy symbols, two bars each, ordered by ticker.
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(bars))
	}
	if bars[0].Ticker != "AAPL" || bars[3].Ticker != "MSFT" {
		t.Fatalf("batch not sorted by ticker: %v %v", bars[0].Ticker, bars[3].Ticker)
	}
}
