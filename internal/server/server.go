// Package server runs the HTTP server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// Config holds HTTP server configuration. Read and write timeouts are long
// because video uploads stream through a single request.
type Config struct {
	Address           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15m"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`
}

const (
	defaultAddress         = ":8080"
	defaultShutdownTimeout = 30 * time.Second
)

// Hook runs on startup or shutdown.
type Hook func(ctx context.Context) error

// Server is an HTTP server with startup and shutdown hooks.
type Server struct {
	handler       http.Handler
	logger        *slog.Logger
	startHooks    []Hook
	shutdownHooks []Hook
	cfg           Config
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

// WithStartHook adds a hook that runs after the listener is open and before
// requests are served. A failing hook aborts the start.
func WithStartHook(h Hook) Option {
	return func(s *Server) {
		if h != nil {
			s.startHooks = append(s.startHooks, h)
		}
	}
}

// WithShutdownHook adds a hook that runs after the HTTP server stopped.
// Hooks run in the order they were added.
func WithShutdownHook(h Hook) Option {
	return func(s *Server) {
		if h != nil {
			s.shutdownHooks = append(s.shutdownHooks, h)
		}
	}
}

// New creates a server for handler.
func New(cfg Config, handler http.Handler, opts ...Option) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on the configured address and blocks until ctx is cancelled,
// SIGINT or SIGTERM arrives, or the server fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run but uses ln and does not watch signals.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	for _, hook := range s.startHooks {
		if err := hook(ctx); err != nil {
			_ = ln.Close()
			return errors.Join(err, s.runShutdownHooks())
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	errs := []error{serveErr}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, s.runHooks(shutdownCtx))

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("shutdown completed with errors", slog.Any("error", err))
		return err
	}
	s.logger.Info("shutdown completed")
	return nil
}

func (s *Server) runShutdownHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.runHooks(ctx)
}

func (s *Server) runHooks(ctx context.Context) error {
	var errs []error
	for _, hook := range s.shutdownHooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			s.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}
	return errors.Join(errs...)
}
