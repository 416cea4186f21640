// Package logger builds the service's structured loggers on log/slog.
//
// Loggers are configured from the environment:
//
//	LOG_LEVEL   debug | info | warn | error (default info)
//	LOG_FORMAT  json | text (default json)
//	SENTRY_DSN  enables Sentry fan-out when set
//
// # Context Extractors
//
// A ContextExtractor pulls an attribute out of the context on every log call,
// so request-scoped values end up on every record without passing loggers
// around:
//
//	log := logger.New(cfg,
//		middlewares.RequestIDExtractor(),
//		logger.ValueExtractor("category"),
//	)
//
//	ctx = logger.WithValue(ctx, "category", "icon")
//	log.InfoContext(ctx, "upload stored", slog.String("key", key))
//	// {"level":"INFO","msg":"upload stored","key":"...","request_id":"...","category":"icon"}
//
// WithExtractors adds the same behaviour to any slog.Handler.
//
// # Sentry
//
// With SENTRY_DSN set, error records create Sentry issues and warnings are
// stored as Sentry logs. Without a DSN, or when initialization fails, the
// logger writes to stdout only. Call Flush before the process exits.
//
// Packages that accept a logger default to NewNope, which discards everything.
package logger
