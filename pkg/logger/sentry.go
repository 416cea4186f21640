package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig enables error reporting to Sentry when DSN is set.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	Release     string `env:"SENTRY_RELEASE"`
	// MinLevel is the lowest level kept as a Sentry log: warn or error.
	// Errors always become issues.
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}

// Flush waits until buffered Sentry events are sent or the timeout expires.
// It reports false on timeout and is a no-op when Sentry was never initialized.
func Flush(timeout time.Duration) bool {
	if sentry.CurrentHub().Client() == nil {
		return true
	}
	return sentry.Flush(timeout)
}

// withSentry fans base out to Sentry. It reports false when Sentry is not
// configured or fails to initialize, leaving base untouched.
func withSentry(base slog.Handler, cfg SentryConfig) (slog.Handler, bool) {
	if cfg.DSN == "" {
		return base, false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(base).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return base, false
	}

	kept := []slog.Level{slog.LevelError}
	if cfg.MinLevel < slog.LevelError {
		kept = append(kept, slog.LevelWarn)
	}
	reporter := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   kept,
	}.NewSentryHandler(context.Background())

	return fanout{base, reporter}, true
}
