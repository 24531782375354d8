// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ingest stores a batch of samples, reporting how many were fresh
	// and how many were dropped as duplicates.
	Ingest(ctx context.Context, batch []model.Sample) (accepted, duplicates int, err error)

	// Read operations expose scores, freshness, and baselines.
	Score(ctx context.Context, kind, day string) (types.ScoreView, bool, error)
	History(ctx context.Context, kind string, offset, limit int) ([]types.ScoreView, error)
	Freshness(ctx context.Context, kind, day string) (types.FreshnessView, error)
	Baseline(ctx context.Context, metric, day string) (types.BaselineView, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	samplesHandler   *SamplesHandler
	scoresHandler    *ScoresHandler
	baselinesHandler *BaselinesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		samplesHandler:   NewSamplesHandler(deps),
		scoresHandler:    NewScoresHandler(deps),
		baselinesHandler: NewBaselinesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleGetStats, "stats"))
	mux.HandleFunc("/v1/samples", MetricsMiddleware(s.samplesHandler.HandlePostSamples, "samples"))
	mux.HandleFunc("/v1/scores/", MetricsMiddleware(s.scoresHandler.HandleScores, "scores"))
	mux.HandleFunc("/v1/baselines/", MetricsMiddleware(s.baselinesHandler.HandleGetBaseline, "baselines"))
}

// sampleInput mirrors the OpenAPI schema for one sample in POST /v1/samples.
type sampleInput struct {
	Kind  string  `json:"kind"`
	TS    string  `json:"ts"`
	Value float64 `json:"value"`
}

func (s sampleInput) validate() error {
	switch {
	case strings.TrimSpace(s.Kind) == "":
		return errors.New("missing kind")
	case !model.MetricKind(s.Kind).Valid():
		return errors.New("unknown kind: " + s.Kind)
	case strings.TrimSpace(s.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, s.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return errors.New("value must be finite")
	}
	return nil
}

// toSample converts a validated input to its domain form.
func (s sampleInput) toSample() model.Sample {
	ts, _ := time.Parse(time.RFC3339, s.TS)
	return model.Sample{
		Kind:  model.MetricKind(s.Kind),
		TS:    ts,
		Value: s.Value,
	}
}

type ingestRequest struct {
	Samples []sampleInput `json:"samples"`
}

type ingestResponse struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
