package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// requestIDValue is the logger value name the request ID is stored under.
const requestIDValue = "request_id"

// DefaultRequestIDHeaders are the incoming headers trusted for a request ID,
// in order of preference.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// maxRequestIDLength bounds IDs accepted from upstream.
const maxRequestIDLength = 128

type requestIDs struct {
	generate func() string
	echo     string
	trusted  []string
}

// RequestIDOption configures RequestID.
type RequestIDOption func(*requestIDs)

// WithRequestIDHeaders replaces the incoming headers checked for an ID.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(ids *requestIDs) { ids.trusted = headers }
}

// WithRequestIDGenerator replaces uuid.NewString for fresh IDs.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(ids *requestIDs) {
		if gen != nil {
			ids.generate = gen
		}
	}
}

// WithRequestIDResponseHeader sets the header the ID is echoed in.
// Default: X-Request-ID.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(ids *requestIDs) { ids.echo = header }
}

// RequestID tags every request with an ID. An upstream ID is reused when it
// is printable and short; otherwise a new one is generated. The ID is echoed
// in the response and logged as "request_id" by RequestIDExtractor.
func RequestID(opts ...RequestIDOption) func(http.Handler) http.Handler {
	ids := &requestIDs{
		generate: uuid.NewString,
		echo:     "X-Request-ID",
		trusted:  DefaultRequestIDHeaders,
	}
	for _, opt := range opts {
		opt(ids)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ids.from(r.Header)
			w.Header().Set(ids.echo, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

func (ids *requestIDs) from(h http.Header) string {
	for _, name := range ids.trusted {
		if v := h.Get(name); validRequestID(v) {
			return v
		}
	}
	return ids.generate()
}

// validRequestID accepts short printable IDs only. Upstream values end up in
// log lines.
func validRequestID(v string) bool {
	if v == "" || len(v) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return false
		}
	}
	return true
}

// WithRequestID returns a copy of ctx carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return logger.WithValue(ctx, requestIDValue, id)
}

// GetRequestID returns the request ID in ctx, or "".
func GetRequestID(ctx context.Context) string {
	return logger.Value(ctx, requestIDValue)
}

// RequestIDExtractor adds "request_id" to log records written with a request
// context.
func RequestIDExtractor() logger.ContextExtractor {
	return logger.ValueExtractor(requestIDValue)
}
