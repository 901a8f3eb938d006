package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ewd00010/bezout/internal/ratelimit"
	"github.com/ewd00010/bezout/pkg/config"
)

// routeExtGCD is the compute route, which is also the rate limiter's
// bucket key.
const routeExtGCD = "/v1/extgcd"

// Options holds the dependencies for a Server.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *Metrics
}

// Server exposes the extended Euclidean computation over HTTP together
// with health, metrics, and admission control.
type Server struct {
	logger  *slog.Logger
	metrics *Metrics
	limiter *ratelimit.Limiter
	handler http.Handler

	httpSrv  *http.Server
	listener net.Listener
	addr     string
}

// New builds a Server from the supplied options.
func New(opts Options) *Server {
	if opts.Config == nil {
		panic("server: config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		logger:  logger,
		metrics: metrics,
		limiter: ratelimit.New(routeLimits(opts.Config)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())

	// Health and metrics stay unwrapped; probe traffic as spans is noise.
	compute := metrics.Middleware(s.rateLimit(http.HandlerFunc(s.handleExtGCD)))
	mux.Handle(routeExtGCD, otelhttp.NewHandler(compute, "bezout.compute"))

	s.handler = mux
	return s
}

// Handler returns the root handler, used directly by httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and serves in the background. Use Shutdown
// to stop.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}

	s.addr = addr
	s.listener = listener
	s.httpSrv = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Log the actual resolved address (useful when addr is :0)
	s.logger.Info("Server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ApplyConfig applies the reloadable subset of a new configuration.
// Rate limits take effect immediately; a changed listen address cannot
// be applied to a bound listener and is only reported.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	s.limiter.Configure(routeLimits(cfg))

	if s.addr != "" && cfg.Server.ListenAddr != s.addr {
		s.logger.Warn("Listen address change requires restart",
			"current", s.addr, "configured", cfg.Server.ListenAddr)
	}

	s.metrics.RecordConfigReload("success")
	s.logger.Info("Applied configuration",
		"requests_per_second", cfg.Limits.RequestsPerSecond,
		"burst", cfg.Limits.Burst)
}

func routeLimits(cfg *config.Config) map[string]ratelimit.Config {
	return map[string]ratelimit.Config{
		routeExtGCD: {
			RequestsPerSecond: cfg.Limits.RequestsPerSecond,
			Burst:             cfg.Limits.Burst,
		},
	}
}

// rateLimit rejects requests over the configured rate with 429 before
// they reach the compute handler.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.AllowContext(r.Context(), r.URL.Path) {
			s.metrics.RecordRateLimited()
			if stats, ok := s.limiter.Stats()[r.URL.Path]; ok {
				ratelimit.WriteHeaders(w, int(stats.Limit), int(stats.Available), time.Now().Add(time.Second))
			}
			s.writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", extractRequestID(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}
