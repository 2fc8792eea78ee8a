// Package server integrates all components into a complete HTTP server
// for the pathproxy gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vivars7/pathproxy/internal/audit"
	"github.com/vivars7/pathproxy/internal/config"
	pathgrpc "github.com/vivars7/pathproxy/internal/grpc"
	"github.com/vivars7/pathproxy/internal/health"
	"github.com/vivars7/pathproxy/internal/proxy"
	"github.com/vivars7/pathproxy/internal/ratelimit"
	"github.com/vivars7/pathproxy/internal/router"
)

// Server is the main pathproxy HTTP server assembling all components.
type Server struct {
	cfg           *config.Config
	configPath    string
	mu            sync.Mutex
	httpServer    *http.Server
	grpcServer    *pathgrpc.HealthServer
	listener      net.Listener // if non-nil, Start uses this instead of creating one
	forwarder     atomic.Pointer[proxy.Forwarder]
	transport     atomic.Pointer[http.Transport]
	fallback      http.Handler
	limiter       *globalRateLimiter
	clientLimiter *ratelimit.ClientLimiter
	healthHandler *health.Handler
	metrics       *audit.Metrics
	reloader      *config.ConfigReloader
	logger        *slog.Logger
	version       string
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithConfigPath enables hot reload of the given file when reload.enabled is set.
func WithConfigPath(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// WithListener makes Start serve on ln instead of opening listen.host:listen.port.
func WithListener(ln net.Listener) Option {
	return func(s *Server) { s.listener = ln }
}

// WithLogger overrides the logger built from the logging section.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a new Server from configuration.
func New(cfg *config.Config, version string, opts ...Option) (*Server, error) {
	srv := &Server{
		cfg:     cfg,
		version: version,
	}
	for _, opt := range opts {
		opt(srv)
	}

	// 1. Logger
	if srv.logger == nil {
		srv.logger = buildLogger(cfg)
	}

	// 2. Metrics
	srv.metrics = audit.NewMetrics()
	srv.metrics.SetBuildInfo(version, runtime.Version())

	// 3. Forwarder (routes, transport, observers)
	if err := srv.installForwarder(cfg); err != nil {
		return nil, err
	}

	// 4. Continuation for requests the forwarder passes through
	srv.fallback = newFallbackHandler(cfg.Fallback.StaticDir)

	// 5. Rate limits
	if cfg.Listen.GlobalRateLimit > 0 {
		srv.limiter = newGlobalRateLimiter(cfg.Listen.GlobalRateLimit, srv.metrics)
	}
	if cfg.Listen.ClientRateLimit > 0 {
		resolver, err := ratelimit.NewClientResolver(cfg.Listen.TrustedProxies)
		if err != nil {
			return nil, fmt.Errorf("listen.trusted_proxies: %w", err)
		}
		srv.clientLimiter = ratelimit.NewClientLimiter(ratelimit.Options{
			PerMinute: cfg.Listen.ClientRateLimit,
			Burst:     cfg.Listen.ClientBurst,
			Resolver:  resolver,
			OnReject:  func() { srv.metrics.RecordRateLimitHit("client") },
		})
	}

	// 6. Health
	srv.healthHandler = health.NewHandler(
		health.RouteCounterFunc(srv.routeCount),
		version,
		cfg.Health.LivenessPath,
		cfg.Health.ReadinessPath,
	)

	// 7. gRPC health service if grpc_port is configured
	if cfg.Listen.GRPCPort > 0 {
		srv.grpcServer = pathgrpc.NewHealthServer(srv.logger)
		srv.grpcServer.SetServing(srv.healthHandler.Ready())
		srv.logger.Info("gRPC health server configured", "port", cfg.Listen.GRPCPort)
	}

	// 8. Hot reload
	if cfg.Reload.Enabled && srv.configPath != "" {
		srv.reloader = config.NewConfigReloader(srv.configPath, cfg, srv.logger)
		srv.reloader.Register(srv)
		srv.reloader.OnResult(srv.recordReload)
	}

	return srv, nil
}

// buildForwarder compiles the route table and constructs a Forwarder with
// its own transport from cfg.
func (s *Server) buildForwarder(cfg *config.Config) (*proxy.Forwarder, *http.Transport, error) {
	routes := make([]router.Route, len(cfg.Routes))
	for i, rt := range cfg.Routes {
		routes[i] = router.Route{Pattern: rt.Pattern, Target: rt.Target}
	}
	table, err := router.NewTable(routes)
	if err != nil {
		return nil, nil, fmt.Errorf("building route table: %w", err)
	}

	transport := proxy.NewTransport(proxy.TransportConfig{
		DialTimeout:           cfg.Upstream.DialTimeout.Duration,
		ResponseHeaderTimeout: cfg.Upstream.ResponseHeaderTimeout.Duration,
		IdleConnTimeout:       cfg.Upstream.IdleConnTimeout.Duration,
		MaxIdleConns:          cfg.Upstream.MaxIdleConns,
		InsecureSkipVerify:    cfg.Upstream.InsecureSkipVerify,
	})

	accessLog := audit.NewAccessLog(s.logger, audit.SamplingConfig{
		Rate:      cfg.Logging.Access.SamplingRate,
		ErrorRate: cfg.Logging.Access.ErrorSamplingRate,
	})

	fwd := proxy.NewForwarder(proxy.Config{
		Routes: table,
		Options: proxy.Options{
			Debug:        cfg.Proxy.Debug,
			ChangeOrigin: cfg.Proxy.ChangeOriginEnabled(),
			Timeout:      cfg.Proxy.Timeout.Duration,
		},
		Transport: transport,
		Logger:    s.logger,
		Observer:  proxy.Observers{s.metrics, accessLog},
	})
	return fwd, transport, nil
}

// installForwarder builds a Forwarder from cfg and makes it the active one.
// In-flight requests keep the Forwarder they started with; idle connections
// of the replaced transport are closed.
func (s *Server) installForwarder(cfg *config.Config) error {
	fwd, transport, err := s.buildForwarder(cfg)
	if err != nil {
		return err
	}

	s.forwarder.Store(fwd)
	if old := s.transport.Swap(transport); old != nil {
		old.CloseIdleConnections()
	}
	s.metrics.SetRoutes(fwd.Routes().Len())
	return nil
}

// OnConfigReload implements config.Reloadable by swapping in a Forwarder
// built from the new routes, proxy options and upstream settings.
func (s *Server) OnConfigReload(newCfg *config.Config) error {
	if err := s.installForwarder(newCfg); err != nil {
		return err
	}
	if s.grpcServer != nil {
		s.grpcServer.SetServing(s.healthHandler.Ready())
	}
	s.logger.Info("routes reloaded", "routes", s.routeCount())
	return nil
}

// recordReload feeds reload outcomes into metrics.
func (s *Server) recordReload(changes int, err error) {
	s.metrics.RecordConfigReload(err == nil)
	if err == nil && changes > 0 {
		s.metrics.SetConfigReloadTime(time.Now())
	}
}

// Forwarder returns the active Forwarder.
func (s *Server) Forwarder() *proxy.Forwarder {
	return s.forwarder.Load()
}

func (s *Server) routeCount() int {
	if fwd := s.forwarder.Load(); fwd != nil {
		return fwd.Routes().Len()
	}
	return 0
}

// Start begins listening and serving. It blocks until the context is canceled
// or an unrecoverable error occurs.
func (s *Server) Start(ctx context.Context) error {
	handler := s.handler()

	listenAddr := fmt.Sprintf("%s:%d", s.cfg.Listen.Host, s.cfg.Listen.Port)

	// Use injected listener or create one
	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", listenAddr)
		if err != nil {
			s.stopLimiters()
			return fmt.Errorf("listening on %s: %w", listenAddr, err)
		}
	}
	ln = wrapListener(ln, s.cfg.Listen)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("listening",
			"addr", ln.Addr().String(),
			"routes", s.routeCount(),
			"proxy_protocol", s.cfg.Listen.ProxyProtocol,
		)
		errCh <- srv.Serve(ln)
	}()

	// Start gRPC health server if configured
	if s.grpcServer != nil {
		grpcAddr := fmt.Sprintf("%s:%d", s.cfg.Listen.Host, s.cfg.Listen.GRPCPort)
		grpcLn, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			srv.Close()
			s.stopLimiters()
			return fmt.Errorf("listening gRPC on %s: %w", grpcAddr, err)
		}
		go func() {
			errCh <- s.grpcServer.Serve(grpcLn)
		}()
	}

	if s.reloader != nil {
		if err := s.reloader.Start(ctx); err != nil {
			s.logger.Warn("config hot reload disabled", "error", err)
			s.reloader = nil
		}
	}

	// Wait for context cancellation or server error
	var serveErr error
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Shutdown.Timeout.Duration)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown error: %w", err)
	}
	if serveErr != nil {
		return serveErr
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Shutdown performs graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	// 1. Fail readiness
	s.healthHandler.SetDraining(true)
	if s.grpcServer != nil {
		s.grpcServer.SetServing(false)
	}

	// 2. Stop reacting to config changes
	if s.reloader != nil {
		s.reloader.Stop()
	}

	// 3. Shutdown HTTP server, waiting for in-flight forwards
	s.mu.Lock()
	hs := s.httpServer
	s.mu.Unlock()

	if hs != nil {
		if err := hs.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	// 4. Graceful stop gRPC server
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	s.stopLimiters()

	// 5. Release upstream connections
	if t := s.transport.Load(); t != nil {
		t.CloseIdleConnections()
	}

	return nil
}

// stopLimiters ends the per-client limiter's cleanup goroutine. Safe to call
// more than once.
func (s *Server) stopLimiters() {
	if s.clientLimiter != nil {
		s.clientLimiter.Stop()
	}
}

// handler builds the complete HTTP handler: health and metrics endpoints,
// then the global and per-client rate limits, then the forwarder in front
// of the fallback.
// Dispatch is by exact path instead of http.ServeMux, which would redirect
// uncleaned paths before the forwarder sees them.
func (s *Server) handler() http.Handler {
	// The active Forwarder is loaded per request so reloads apply to new
	// requests only.
	var main http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.forwarder.Load().Handle(w, r, s.fallback)
	})

	if s.clientLimiter != nil {
		main = s.clientLimiter.Process(main)
	}
	if s.limiter != nil {
		main = s.limiter.Process(main)
	}

	var metrics http.Handler
	if s.cfg.Metrics.IsEnabled() {
		metrics = s.metrics.Handler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case s.cfg.Health.LivenessPath, s.cfg.Health.ReadinessPath:
			s.healthHandler.ServeHTTP(w, r)
			return
		case s.cfg.Metrics.Path:
			if metrics != nil {
				metrics.ServeHTTP(w, r)
				return
			}
		}
		main.ServeHTTP(w, r)
	})
}

// buildLogger creates an slog.Logger based on configuration.
func buildLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var output *os.File
	switch cfg.Logging.Output {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}
