// Package server exposes the job registry over HTTP: the JSON job API,
// structured exports, health probes and the Prometheus scrape endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/leefowlercu/batch-monitor/internal/export"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
)

// readyTimeout bounds the store ping done by /readyz.
const readyTimeout = 2 * time.Second

// Config holds configuration for the HTTP server.
type Config struct {
	Bind string
	Port int
	// RateLimit is the sustained request rate allowed on the job API, per second.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler mounts handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithBackendName labels readiness reports and the store_up gauge.
func WithBackendName(name string) Option {
	return func(s *Server) { s.backend = name }
}

// WithStoreUpReporter is called with the outcome of every readiness check.
func WithStoreUpReporter(fn func(backend string, up bool)) Option {
	return func(s *Server) { s.reportStoreUp = fn }
}

// WithRequestRecorder is called once per served request with its route pattern.
func WithRequestRecorder(fn func(method, route string, code int)) Option {
	return func(s *Server) { s.recordRequest = fn }
}

// Server is the HTTP front of a job registry. It is safe for concurrent use.
type Server struct {
	mu             sync.RWMutex
	config         Config
	registry       *jobs.Registry
	exporter       *export.Exporter
	exportDefaults export.ExportOptions
	logger         *slog.Logger
	metricsHandler http.Handler
	backend        string
	reportStoreUp  func(backend string, up bool)
	recordRequest  func(method, route string, code int)
	limiter        *rate.Limiter
	started        time.Time
	server         *http.Server
	router         chi.Router
}

// NewServer creates a server for registry.
func NewServer(registry *jobs.Registry, cfg Config, opts ...Option) *Server {
	s := &Server{
		config:         cfg,
		registry:       registry,
		exporter:       export.NewExporter(registry),
		exportDefaults: export.DefaultExportOptions(),
		logger:         slog.Default(),
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "http_server")

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimit)
		}
		r.Post("/jobs", s.handleStartJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/end", s.handleEndJob)
		r.Get("/export", s.handleExport)
	})

	s.router = r
}

// SetExportDefaults replaces the defaults applied to /export requests.
// Used when the export section of the configuration is reloaded.
func (s *Server) SetExportDefaults(opts export.ExportOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportDefaults = opts
}

func (s *Server) getExportDefaults() export.ExportOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportDefaults
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() (net.Listener, error) {
	addr := net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s; %w", addr, err)
	}
	return ln, nil
}

// Serve serves on ln and blocks until the server is shut down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	server := s.server
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error; %w", err)
	}

	return nil
}

// Start listens on the configured address and blocks until the server is stopped.
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}

	return nil
}

// instrument reports every request by its route pattern, not its raw path,
// so job ids never become label values.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if s.recordRequest != nil {
			s.recordRequest(r.Method, route, status)
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(started),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
