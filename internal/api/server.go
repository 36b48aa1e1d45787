// Package api exposes the HTTP interface for the scan service.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/config"
	"github.com/webshepherd/webshepherd/internal/engine"
	"github.com/webshepherd/webshepherd/internal/fetcher"
	"github.com/webshepherd/webshepherd/internal/metrics"
	"github.com/webshepherd/webshepherd/internal/ratelimit"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// Server wires HTTP handlers to the scan engine and rate limiter.
type Server struct {
	router  chi.Router
	engine  *engine.Engine
	limiter *ratelimit.Limiter
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scanEngine *engine.Engine,
	limiter *ratelimit.Limiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  scanEngine,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.submitScan)
		r.Get("/scan/{scan_id}", s.getScan)
		r.Get("/stats", s.getStats)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "WebShepherd",
		"status":  "healthy",
		"version": Version,
	}, s.logger)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

type scanRequest struct {
	URL string `json:"url"`
}

type scanAccepted struct {
	ScanID    string      `json:"scan_id"`
	Status    scan.Status `json:"status"`
	CreatedAt string      `json:"created_at"`
}

func (s *Server) submitScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	if req.URL == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "url is required", s.logger)
		return
	}
	if err := fetcher.ValidateURL(req.URL, s.cfg.Fetch.AllowPrivate); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error(), s.logger)
		return
	}

	// The limiter runs before any scan record exists: a denied submission
	// leaves no trace in the store.
	if !s.limiter.Allow(s.clientKey(r)) {
		metrics.IncRateLimited()
		writeDetail(w, http.StatusTooManyRequests, "rate limit exceeded, try again later", s.logger)
		return
	}

	record, err := s.engine.Submit(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("submit scan failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create scan", s.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, scanAccepted{
		ScanID:    record.ID,
		Status:    record.Status,
		CreatedAt: record.CreatedAt.Format(timeFormat),
	}, s.logger)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scan_id")
	record, err := s.engine.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, scan.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scan not found", s.logger)
			return
		}
		s.logger.Error("get scan failed", zap.String("scan_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to retrieve scan", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(record), s.logger)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Error("get stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get statistics", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats, s.logger)
}

// clientKey identifies the caller for rate limiting. X-Forwarded-For is
// honored only when the server is configured behind a trusted proxy,
// since any direct client can set the header to an arbitrary value.
func (s *Server) clientKey(r *http.Request) string {
	if s.cfg.Server.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
