// Package server implements the cache inspector HTTP API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cache-inspector/pkg/inspect"
	"github.com/Sternrassler/cache-inspector/pkg/metrics"
	"github.com/Sternrassler/cache-inspector/pkg/ratelimit"
	"github.com/Sternrassler/cache-inspector/pkg/store"
)

// Prometheus metrics for the HTTP API.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_http_requests_total",
		Help: "Total API requests by route pattern and status code",
	}, []string{"route", "code"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_analyses_total",
		Help: "Total analyses by resolved serving component",
	}, []string{"served_by"})
)

// Config holds the server dependencies.
type Config struct {
	// Store persists runs and reports. Required.
	Store store.Store

	// Inspector fetches URLs. Required.
	Inspector inspect.URLInspector

	// Limiter throttles inspections per client. Nil disables throttling.
	Limiter *ratelimit.Limiter

	// InspectTimeout bounds a single inspection, retries included.
	InspectTimeout time.Duration

	// Logger for request logging (default: disabled).
	Logger *zerolog.Logger

	// Now returns the reference time for analyses (default: time.Now).
	Now func() time.Time
}

// Server serves the cache inspector API.
type Server struct {
	store          store.Store
	inspector      inspect.URLInspector
	limiter        *ratelimit.Limiter
	inspectTimeout time.Duration
	logger         zerolog.Logger
	now            func() time.Time
	router         chi.Router
}

// New creates a server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Inspector == nil {
		return nil, fmt.Errorf("inspector is required")
	}

	s := &Server{
		store:          cfg.Store,
		inspector:      cfg.Inspector,
		limiter:        cfg.Limiter,
		inspectTimeout: cfg.InspectTimeout,
		logger:         zerolog.Nop(),
		now:            cfg.Now,
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With().Str("component", "server").Logger()
	}
	if s.inspectTimeout <= 0 {
		s.inspectTimeout = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/inspect-url", s.handleInspectAndSave)
		r.Get("/inspect-url/*", s.handleInspect)
		r.Get("/runs/{runId}", s.handleGetRun)
		r.Get("/reports/{reportId}", s.handleGetReport)
		r.Post("/analyze", s.handleAnalyze)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs every request and counts it by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(route, fmt.Sprint(status)).Inc()

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status_code", status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
