// Package api exposes the dashboard HTTP surface: stored buzz and
// feature series, latest predictions, a training trigger, and a
// WebSocket channel for run progress. Rendering happens elsewhere;
// this server only serves JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/quantlabs/nowcast/internal/config"
	"github.com/quantlabs/nowcast/internal/nowcast"
	"github.com/quantlabs/nowcast/internal/store"
	"github.com/quantlabs/nowcast/pkg/models"
	"github.com/quantlabs/nowcast/pkg/utils"
)

// APIResponse is the uniform JSON envelope for every endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server is the dashboard HTTP server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	log      *zap.Logger
	pipeline *nowcast.Pipeline
	buzz     *store.BuzzStore

	mu         sync.RWMutex
	lastReport *models.TrainReport
	training   bool

	wsHub *WSHub
}

// NewServer wires a Server over the on-disk stores.
func NewServer(cfg *config.Config, log *zap.Logger, pipeline *nowcast.Pipeline) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline,
		buzz:     store.NewBuzzStore(cfg.Data.BuzzDir),
		wsHub:    NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router { return s.router }

// ListenAndServe starts the HTTP server and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard api listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/buzz/dates", s.handleBuzzDates)
		r.Get("/buzz/{date}", s.handleBuzzByDate)

		r.Get("/features/{ticker}", s.handleFeatures)

		r.Get("/predictions", s.handlePredictions)
		r.Post("/train", s.handleTrain)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	training := s.training
	trained := s.lastReport != nil
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"feature_store": store.Exists(s.cfg.Data.FeatureDB),
			"training":      training,
			"has_report":    trained,
			"time":          utils.NowEastern().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleBuzzDates(w http.ResponseWriter, _ *http.Request) {
	dates, err := s.buzz.Dates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: dates})
}

func (s *Server) handleBuzzByDate(w http.ResponseWriter, r *http.Request) {
	date, err := utils.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	aggs, err := s.buzz.Read(date)
	if err != nil {
		writeError(w, http.StatusNotFound, "no buzz for "+utils.FormatDate(date))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: aggs})
}

// featurePoint is one chart-friendly observation. Undefined values
// are emitted as nulls, not NaN, so the payload stays valid JSON.
type featurePoint struct {
	Date      string   `json:"date"`
	Close     float64  `json:"close"`
	Volume    int64    `json:"volume"`
	R1        *float64 `json:"r1"`
	R5        *float64 `json:"r5"`
	R20       *float64 `json:"r20"`
	RSI14     *float64 `json:"rsi14"`
	Vol20     *float64 `json:"vol20"`
	Hi52dDist *float64 `json:"hi52d_dist"`
	Lo52dDist *float64 `json:"lo52d_dist"`
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker")
		return
	}
	if !store.Exists(s.cfg.Data.FeatureDB) {
		writeError(w, http.StatusNotFound, "feature store not built yet")
		return
	}

	fs, err := store.OpenFeatureStore(s.cfg.Data.FeatureDB)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer fs.Close()

	rows, err := fs.LoadTicker(ticker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "no features for "+ticker)
		return
	}

	points := make([]featurePoint, len(rows))
	for i, row := range rows {
		points[i] = featurePoint{
			Date:      utils.FormatDate(row.Date),
			Close:     row.Close,
			Volume:    row.Volume,
			R1:        jsonFloat(row.R1),
			R5:        jsonFloat(row.R5),
			R20:       jsonFloat(row.R20),
			RSI14:     jsonFloat(row.RSI14),
			Vol20:     jsonFloat(row.Vol20),
			Hi52dDist: jsonFloat(row.Hi52dDist),
			Lo52dDist: jsonFloat(row.Lo52dDist),
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]any{
		"ticker": ticker,
		"points": points,
	}})
}

func (s *Server) handlePredictions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	report := s.lastReport
	s.mu.RUnlock()

	if report == nil {
		writeError(w, http.StatusNotFound, "no training run yet")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

func (s *Server) handleTrain(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.training {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "training already in progress")
		return
	}
	s.training = true
	s.mu.Unlock()

	go s.runTraining()

	writeJSON(w, http.StatusAccepted, APIResponse{
		Success: true,
		Data:    map[string]any{"status": "started"},
	})
}

// runTraining executes the pipeline in the background and broadcasts
// progress over the websocket hub.
func (s *Server) runTraining() {
	defer func() {
		s.mu.Lock()
		s.training = false
		s.mu.Unlock()
	}()

	s.wsHub.Broadcast(WSMessage{Type: "train_started"})

	report, err := s.pipeline.Run()
	if err != nil {
		s.log.Error("training run failed", zap.Error(err))
		s.wsHub.Broadcast(WSMessage{
			Type: "train_failed",
			Data: map[string]any{"error": err.Error()},
		})
		return
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	s.wsHub.Broadcast(WSMessage{Type: "train_finished", Data: report})
}

// --- helpers ---

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
