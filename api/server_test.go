package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantlabs/nowcast/internal/config"
	"github.com/quantlabs/nowcast/internal/nowcast"
	"github.com/quantlabs/nowcast/internal/store"
	"github.com/quantlabs/nowcast/pkg/models"
	"github.com/quantlabs/nowcast/pkg/utils"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Data.Dir = dir
	cfg.Data.BuzzDir = filepath.Join(dir, "buzz")
	cfg.Data.FeatureDB = filepath.Join(dir, "daily.duckdb")
	cfg.Training.TestDays = 5
	cfg.Training.UseBuzz = true
	cfg.Training.Seed = 42
	cfg.Training.ForestSize = 10

	harness := nowcast.New(nil, cfg.Training.UseBuzz, cfg.Training.Seed, cfg.Training.ForestSize)
	pipeline := nowcast.NewPipeline(nil, cfg.Data.FeatureDB, cfg.Data.BuzzDir, cfg.Training.TestDays, harness)
	return NewServer(cfg, nil, pipeline), cfg
}

func doGet(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON from %s: %v: %s", path, err, rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, resp := doGet(t, srv, "/health")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health: code=%d success=%v", rec.Code, resp.Success)
	}
	data := resp.Data.(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("status = %v", data["status"])
	}
	if data["feature_store"] != false {
		t.Fatal("feature_store should be false before the prices step")
	}
}

func TestBuzzEndpoints(t *testing.T) {
	srv, cfg := newTestServer(t)

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bs := store.NewBuzzStore(cfg.Data.BuzzDir)
	if _, err := bs.Write(date, []models.BuzzAggregate{
		{Date: date, Ticker: "AAPL", Mentions: 3, AvgSentiment: 0.2, Sources: "feed-a"},
	}); err != nil {
		t.Fatal(err)
	}

	rec, resp := doGet(t, srv, "/api/v1/buzz/dates")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("dates: code=%d", rec.Code)
	}
	dates := resp.Data.([]any)
	if len(dates) != 1 || dates[0] != "2025-03-10" {
		t.Fatalf("dates = %v", dates)
	}

	rec, resp = doGet(t, srv, "/api/v1/buzz/2025-03-10")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("buzz by date: code=%d err=%s", rec.Code, resp.Error)
	}

	rec, _ = doGet(t, srv, "/api/v1/buzz/not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid date should be 400, got %d", rec.Code)
	}

	rec, _ = doGet(t, srv, "/api/v1/buzz/2025-03-11")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing date should be 404, got %d", rec.Code)
	}
}

func TestFeaturesEndpoint(t *testing.T) {
	srv, cfg := newTestServer(t)

	rec, _ := doGet(t, srv, "/api/v1/features/AAPL")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing store should be 404, got %d", rec.Code)
	}

	fs, err := store.OpenFeatureStore(cfg.Data.FeatureDB)
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	row := models.NewFeatureRow(models.PriceBar{
		Date: day, Ticker: "AAPL",
		Open: 10, High: 10.2, Low: 9.8, Close: 10.1, Volume: 500,
	})
	row.R1 = 0.01
	if err := fs.Replace([]models.FeatureRow{row}); err != nil {
		t.Fatal(err)
	}
	fs.Close()

	rec, resp := doGet(t, srv, "/api/v1/features/aapl")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("features: code=%d err=%s", rec.Code, resp.Error)
	}
	body := rec.Body.String()
	if strings.Contains(body, "NaN") {
		t.Fatal("payload must not contain NaN literals")
	}
	data := resp.Data.(map[string]any)
	if data["ticker"] != "AAPL" {
		t.Fatalf("ticker = %v, want normalized AAPL", data["ticker"])
	}
	points := data["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("points = %d", len(points))
	}
	p := points[0].(map[string]any)
	if p["r1"] != 0.01 {
		t.Fatalf("r1 = %v", p["r1"])
	}
	if p["rsi14"] != nil {
		t.Fatalf("undefined rsi14 should be null, got %v", p["rsi14"])
	}

	rec, _ = doGet(t, srv, "/api/v1/features/MSFT")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ticker should be 404, got %d", rec.Code)
	}
}

func TestPredictionsBeforeTraining(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := doGet(t, srv, "/api/v1/predictions")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before training, got %d", rec.Code)
	}
}

func TestPredictionsAfterReport(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.mu.Lock()
	srv.lastReport = &models.TrainReport{
		Reports: []models.ModelReport{{Model: "logistic", Accuracy: 0.52, Baseline: 0.5}},
	}
	srv.mu.Unlock()

	rec, resp := doGet(t, srv, "/api/v1/predictions")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("predictions: code=%d", rec.Code)
	}
}

func TestTrainTrigger(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("train trigger should return 202, got %d", rec.Code)
	}
}

func TestTrainConflictWhileRunning(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.mu.Lock()
	srv.training = true
	srv.mu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("concurrent train should return 409, got %d", rec.Code)
	}
}

func TestJSONFloat(t *testing.T) {
	if jsonFloat(math.NaN()) != nil {
		t.Fatal("NaN should map to nil")
	}
	if v := jsonFloat(1.5); v == nil || *v != 1.5 {
		t.Fatalf("jsonFloat(1.5) = %v", v)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)
	go srv.wsHub.Run()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for registration before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for srv.wsHub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.wsHub.Broadcast(WSMessage{Type: "train_started"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "train_started" {
		t.Fatalf("msg type = %q", msg.Type)
	}
}

func TestDateRoundTripThroughAPI(t *testing.T) {
	// Buzz filenames and URL params share the same date format.
	d, err := utils.ParseDate("2025-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if got := utils.FormatDate(d); got != "2025-12-31" {
		t.Fatalf("round trip = %q", got)
	}
	if fmt.Sprintf("%d", d.Year()) != "2025" {
		t.Fatal("year lost in parse")
	}
}
