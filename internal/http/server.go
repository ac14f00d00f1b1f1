package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cofipei/internal/core"
	"cofipei/internal/log"
	"cofipei/internal/middleware/ratelimit"
	"cofipei/internal/middleware/security"
	"cofipei/internal/middleware/trace"
	"cofipei/internal/services"
)

// ChartGenerator produces a chart response from a raw payload.
type ChartGenerator interface {
	Generate(ctx context.Context, payload core.ChartPayload) (core.ChartResponse, error)
	Metrics() services.Metrics
}

// ReportLister lists recent chart reports.
type ReportLister interface {
	ListRecent(ctx context.Context, limit int) ([]core.ReportRecord, error)
}

// Sizer reports the number of entries in a cache.
type Sizer interface {
	Size() int
}

// ReadyCheck returns nil when a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Options configures the HTTP server. Zero values fall back to defaults.
type Options struct {
	Addr               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	MaxBodyBytes       int64
	RateLimitPerMinute int

	// Reports backs GET /reports; nil answers 404.
	Reports ReportLister
	// ImageCache is reported on /metrics and /readyz when set.
	ImageCache Sizer
	// ReadyChecks are run by /readyz, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck

	Logger *log.Logger
}

const (
	defaultMaxBodyBytes = 1 << 20
	readyTimeout        = 5 * time.Second
)

// Server is the chart API HTTP server.
type Server struct {
	http.Server
	generator    ChartGenerator
	reports      ReportLister
	imageCache   Sizer
	readyChecks  map[string]ReadyCheck
	maxBodyBytes int64

	logger           *log.Logger
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	started      time.Time
	shuttingDown atomic.Bool
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around generator.
func NewServer(generator ChartGenerator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewDefault()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(opts.Logger)

	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		generator:    generator,
		reports:      opts.Reports,
		imageCache:   opts.ImageCache,
		readyChecks:  opts.ReadyChecks,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Logger:            opts.Logger,
		}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		started:          time.Now(),
	}

	mux := http.NewServeMux()
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.writeRateLimited)
	mux.Handle("/generate-chart", limited(http.HandlerFunc(s.handleGenerateChart)))
	mux.HandleFunc("/reports", s.handleReports)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", s.handleNotFound)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.Middleware(opts.Logger)(handler)
	s.Handler = handler

	return s
}

// Shutdown marks the server not ready, stops background work and drains
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.shuttingDown.Store(true)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
