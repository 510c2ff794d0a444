// Package runtime turns configuration into running HTTP servers.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	app "github.com/R3E-Network/app_registry/internal/app"
	"github.com/R3E-Network/app_registry/internal/app/gateway"
	"github.com/R3E-Network/app_registry/internal/app/httpapi"
	"github.com/R3E-Network/app_registry/internal/app/storage/factory"
	"github.com/R3E-Network/app_registry/internal/config"
	"github.com/R3E-Network/app_registry/internal/httputil"
	"github.com/R3E-Network/app_registry/internal/middleware"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

// Version is reported by the health and info endpoints.
var Version = "1.0.0"

// Server is an HTTP server plus the resources it owns.
type Server struct {
	name            string
	log             *logger.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
	stopCleanup     chan struct{}
	cleanup         []func(context.Context) error
}

// NewBackend wires the storage backend, the record store, the audit service
// and the REST API.
func NewBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.New(cfg.Logging)
	}

	store, err := factory.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	application, err := app.New(app.Options{Store: store, AuditSchedule: cfg.Audit.Schedule}, log)
	if err != nil {
		_ = factory.Close(store)
		return nil, err
	}
	if err := application.Start(ctx); err != nil {
		_ = factory.Close(store)
		return nil, fmt.Errorf("start application: %w", err)
	}

	handler := httpapi.NewHandler(application.Apps, log, httpapi.Options{Version: Version})
	s := newServer("backend", cfg, cfg.Server.Port, log, handler)
	s.cleanup = append(s.cleanup,
		application.Stop,
		func(context.Context) error { return factory.Close(store) },
	)
	return s, nil
}

// NewGateway wires the gateway in front of cfg.Gateway.BackendURL.
func NewGateway(cfg *config.Config, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.New(cfg.Logging)
	}
	if cfg.Gateway.BackendURL == "" {
		return nil, errors.New("gateway: backend_url is required")
	}
	client := httputil.NewClient(httputil.ClientConfig{
		BaseURL:    cfg.Gateway.BackendURL,
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
	})
	handler := gateway.NewHandler(client, log, gateway.Options{Version: Version})
	return newServer("gateway", cfg, cfg.Gateway.Port, log, handler), nil
}

func newServer(name string, cfg *config.Config, port int, log *logger.Logger, router http.Handler) *Server {
	s := &Server{
		name:            name,
		log:             log,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		stopCleanup:     make(chan struct{}),
	}

	mws := []func(http.Handler) http.Handler{
		middleware.NewTracingMiddleware(log).Handler,
		middleware.Recovery(log),
		middleware.SecurityHeaders,
		middleware.NewCORSMiddleware(cfg.CORS.Origins()).Handler,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(5*time.Minute, s.stopCleanup)
		mws = append(mws, limiter.Handler)
	}
	mws = append(mws, middleware.Metrics())

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port)),
		Handler:      middleware.Chain(router, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("%s listening on %s", s.name, ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		shutdownErr := s.Shutdown(context.Background())
		if ok && err != nil {
			return errors.Join(err, shutdownErr)
		}
		return shutdownErr
	}
}

// Shutdown stops the HTTP server and releases owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	select {
	case <-s.stopCleanup:
	default:
		close(s.stopCleanup)
	}
	for _, fn := range s.cleanup {
		if err := fn(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("error releasing resources")
			errs = append(errs, err)
		}
	}
	s.cleanup = nil
	s.log.Infof("%s stopped", s.name)
	return errors.Join(errs...)
}
