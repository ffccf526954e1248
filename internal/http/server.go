package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wellnesslog/internal/analytics"
	"wellnesslog/internal/core"
	applog "wellnesslog/internal/log"
	"wellnesslog/internal/services"
)

// EntryService is what the handlers need from services.EntryService.
type EntryService interface {
	Submit(ctx context.Context, c core.Category, raw core.RawFields) (services.SubmitResult, error)
	Entries(ctx context.Context, c core.Category) ([]core.Entry, error)
	Clear(ctx context.Context, c core.Category, confirmed bool) (bool, error)
	Dashboard(ctx context.Context, c core.Category) (analytics.Dashboard, error)
	Insights(ctx context.Context) (analytics.Insights, error)
	Export(ctx context.Context) core.Snapshot
	Import(ctx context.Context, snap core.Snapshot) (int, error)
}

// Options tune a Server. Zero values pick defaults.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc         EntryService
	logger      *applog.Logger
	events      *applog.StructuredLogger
	ready       func(ctx context.Context) error
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc EntryService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.Middleware(logger)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:         svc,
		logger:      logger,
		events:      applog.NewStructuredLogger(logger),
		ready:       opts.Ready,
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
		metrics:     &securityMetrics{},
		now:         time.Now,
	}
	go s.rateLimiter.startCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/entries/{category}", s.withSecurityHeaders(s.handleSubmit))
	mux.HandleFunc("GET /api/entries/{category}", s.withSecurityHeaders(s.handleListEntries))
	mux.HandleFunc("DELETE /api/entries/{category}", s.withSecurityHeaders(s.handleClear))
	mux.HandleFunc("GET /api/dashboard/{category}", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("GET /api/insights", s.withSecurityHeaders(s.handleInsights))
	mux.HandleFunc("GET /api/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withSecurityHeaders(s.handleImport))

	return s
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := applog.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		setSecurityHeaders(w.Header())

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			rw.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(rw)
		} else {
			next(rw, r)
		}

		s.events.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
