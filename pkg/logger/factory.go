package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds logger configuration.
type Config struct {
	Format string     `env:"LOG_FORMAT" envDefault:"json"`
	Sentry SentryConfig
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// New creates a logger writing to stdout. Records go to Sentry as well when
// cfg.Sentry.DSN is set.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, extractors...)
}

// NewWithWriter is like New but writes to w.
func NewWithWriter(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	base := newHandler(w, cfg)
	if h, ok := withSentry(base, cfg.Sentry); ok {
		base = h
	}
	return slog.New(WithExtractors(base, extractors...))
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, FormatText) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
