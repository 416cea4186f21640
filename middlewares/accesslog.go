package middlewares

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// AccessLogConfig configures the access log middleware.
type AccessLogConfig struct {
	Logger    *slog.Logger
	SkipPaths []string // Exact paths that are never logged (probes, metrics)
}

// AccessLogOption configures AccessLogConfig.
type AccessLogOption func(*AccessLogConfig)

// WithAccessLogSkipPaths sets paths that are not logged.
func WithAccessLogSkipPaths(paths ...string) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		cfg.SkipPaths = paths
	}
}

// AccessLog returns middleware that logs one record per request with the
// method, path, status, response size and duration. 5xx responses are logged
// at error level, 4xx at warn.
func AccessLog(l *slog.Logger, opts ...AccessLogOption) func(http.Handler) http.Handler {
	cfg := &AccessLogConfig{Logger: l}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNope()
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(cfg.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			cfg.Logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("request_bytes", r.ContentLength),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
