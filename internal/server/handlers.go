package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/api"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/data"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
	"github.com/dgnsrekt/intraday-dashboard/internal/render"
)

// Snapshotter builds dashboard snapshots
type Snapshotter interface {
	Build(ctx context.Context, symbol string) (*dashboard.Snapshot, error)
	OptionsMatrix(ctx context.Context, symbol string, metric options.Metric) (options.Matrix, error)
}

// CacheResetter drops cached upstream responses; an empty key clears all
type CacheResetter interface {
	Reset(key string) int
}

type Server struct {
	svc       Snapshotter
	caches    []CacheResetter
	chart     render.ChartOptions
	startedAt time.Time
	logger    *zap.Logger
}

func NewServer(svc Snapshotter, chart render.ChartOptions, logger *zap.Logger, caches ...CacheResetter) *Server {
	return &Server{
		svc:       svc,
		caches:    caches,
		chart:     chart,
		startedAt: time.Now(),
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type latestResponse struct {
	RSI   indicator.Value `json:"rsi"`
	VWAP  indicator.Value `json:"vwap"`
	Slope indicator.Value `json:"slope"`
}

type summaryResponse struct {
	Symbol   string              `json:"symbol"`
	Summary  any                 `json:"summary"`
	Latest   latestResponse      `json:"latest"`
	Warnings []dashboard.Warning `json:"warnings"`
}

type optionsResponse struct {
	Symbol string         `json:"symbol"`
	Matrix options.Matrix `json:"matrix"`
	Totals options.Totals `json:"totals"`
}

type resetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	resp := summaryResponse{
		Symbol: snap.Symbol,
		Latest: latestResponse{
			RSI:   snap.Frame.LatestRSI(),
			VWAP:  snap.Frame.LatestVWAP(),
			Slope: snap.Frame.LatestSlope(),
		},
		Warnings: snap.Warnings,
	}
	if snap.Summary != nil {
		resp.Summary = snap.Summary
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFrame returns the indicator frame; ?limit=n keeps the last n rows
func (s *Server) GetFrame(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Frame.Tail(limit))
}

func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	var metric options.Metric
	if v := r.URL.Query().Get("metric"); v != "" {
		m, err := options.ParseMetric(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		metric = m
	}

	symbol := chi.URLParam(r, "symbol")
	m, err := s.svc.OptionsMatrix(r.Context(), symbol, metric)
	if err != nil {
		s.writeError(w, symbol, err)
		return
	}
	sym, _ := dashboard.NormalizeSymbol(symbol)
	writeJSON(w, http.StatusOK, optionsResponse{Symbol: sym, Matrix: m, Totals: m.Totals()})
}

func (s *Server) GetChart(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.WriteChart(&buf, snap, s.chart); err != nil {
		s.writeError(w, snap.Symbol, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ResetCache drops cached upstream data; ?symbol= limits it to one symbol
func (s *Server) ResetCache(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol != "" {
		sym, err := dashboard.NormalizeSymbol(symbol)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		symbol = sym
	}

	count := 0
	for _, c := range s.caches {
		count += c.Reset(symbol)
	}

	message := "All cached data dropped"
	if symbol != "" {
		message = "Cached data dropped for " + symbol
	}
	s.logger.Info("cache reset",
		zap.String("symbol", symbol),
		zap.Int("count", count),
	)

	writeJSON(w, http.StatusOK, resetResponse{
		Status:  "success",
		Message: message,
		Count:   count,
	})
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*dashboard.Snapshot, bool) {
	symbol := chi.URLParam(r, "symbol")
	snap, err := s.svc.Build(r.Context(), symbol)
	if err != nil {
		s.writeError(w, symbol, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) writeError(w http.ResponseWriter, symbol string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("symbol", symbol), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrNotFound), errors.Is(err, data.ErrNotFound), errors.Is(err, dashboard.ErrOptionsDisabled):
		return http.StatusNotFound
	case errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, api.ErrAuthFailed), errors.Is(err, api.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
