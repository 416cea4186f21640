// Package middlewares provides net/http middleware for the assetflow HTTP
// server. Every middleware has the func(http.Handler) http.Handler shape and
// plugs into chi with r.Use.
//
// # Request ID
//
// RequestID reuses an upstream X-Request-ID or X-Correlation-ID header or
// generates a UUID, stores it in the request context and echoes it in the
// response. RequestIDExtractor adds it to every log record:
//
//	log := logger.New(cfg.Log, middlewares.RequestIDExtractor())
//
// # Recover
//
// Recover turns handler panics into a logged 500 response. The response can
// be replaced with WithRecoverHandler.
//
// # Access Log
//
// AccessLog writes one record per request with status, size and duration.
// Probe and metrics paths can be skipped.
//
// # CORS
//
// CORS answers preflight requests and decorates responses for browser
// uploads. The defaults allow the upload and slot methods with the
// Idempotency-Key header and expose Idempotent-Replayed and X-Request-ID.
//
// # Order
//
//	r.Use(
//	    middlewares.RequestID(),
//	    middlewares.AccessLog(log),
//	    middlewares.Recover(middlewares.WithRecoverLogger(log)),
//	    middlewares.CORS(middlewares.WithAllowOrigins(origins...)),
//	)
//
// Recover runs inside AccessLog so recovered panics are logged with their 500.
package middlewares
