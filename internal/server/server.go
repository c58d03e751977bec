package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cuacadesa/internal/dashboard"
	"cuacadesa/internal/forecast"
	"cuacadesa/internal/log"
	"cuacadesa/internal/metrics"
	"cuacadesa/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// DashboardBuilder computes dashboards on demand
type DashboardBuilder interface {
	Build(ctx context.Context) (*models.Dashboard, error)
	Panel(ctx context.Context, variable string) (*models.Panel, error)
}

// AdvisoryStore reads archived advisories
type AdvisoryStore interface {
	GetAdvisories(site string, limit int) ([]models.AdvisoryRecord, error)
}

type Options struct {
	Site      string
	Precision int
	// RateLimit is requests per second on /api; 0 disables limiting
	RateLimit float64
	Burst     int
}

// Server represents the HTTP server
type Server struct {
	dashboard DashboardBuilder
	store     AdvisoryStore
	opts      Options
	limiter   *rate.Limiter
	router    *chi.Mux
	httpSrv   *http.Server
}

// NewServer creates a new HTTP server. store may be nil when the archive
// database is disabled.
func NewServer(dash DashboardBuilder, store AdvisoryStore, opts Options) *Server {
	s := &Server{
		dashboard: dash,
		store:     store,
		opts:      opts,
		router:    chi.NewRouter(),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.observe)

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/panels/{variable}", s.handlePanel)
		r.Get("/insights", s.handleInsights)
		r.Get("/insights/history", s.handleInsightHistory)
		r.Get("/forecast.csv", s.handleCombinedCSV)
		r.Get("/forecast/{variable}.csv", s.handleForecastCSV)
	})

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops a started server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// observe records metrics and a log line per request, labelled by route pattern
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(route, r.Method, status, time.Since(start))
		log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps build errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrUnknownVariable):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrMissingData), errors.Is(err, forecast.ErrMissingArtifact):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) build(w http.ResponseWriter, r *http.Request) (*models.Dashboard, bool) {
	d, err := s.dashboard.Build(r.Context())
	if err != nil {
		log.Errorf("Failed to build dashboard: %v", err)
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return d, true
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"site":   s.opts.Site,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	p, err := s.dashboard.Panel(r.Context(), chi.URLParam(r, "variable"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleInsights returns only the advisory part of a fresh dashboard
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	d, ok := s.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"site":         d.Site,
		"generated_at": d.GeneratedAt,
		"insight":      d.Insight,
		"notices":      d.Notices,
	})
}

func (s *Server) handleInsightHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("advisory history is disabled"))
		return
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	records, err := s.store.GetAdvisories(s.opts.Site, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(records),
		"advisories": records,
	})
}

func (s *Server) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	variable := chi.URLParam(r, "variable")
	p, err := s.dashboard.Panel(r.Context(), variable)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", variable+"_forecast.csv"))
	if err := dashboard.WriteForecastCSV(w, p, s.opts.Precision); err != nil {
		log.Warnf("Failed to write %s csv: %v", variable, err)
	}
}

func (s *Server) handleCombinedCSV(w http.ResponseWriter, r *http.Request) {
	d, ok := s.build(w, r)
	if !ok {
		return
	}
	if d.Insight == nil {
		writeError(w, http.StatusConflict, errors.New(dashboard.NoOverlapNotice))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
	if err := dashboard.WriteCombinedCSV(w, d, s.opts.Precision); err != nil {
		log.Warnf("Failed to write combined csv: %v", err)
	}
}
