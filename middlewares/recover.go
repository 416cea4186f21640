package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// DefaultStackSize caps the stack trace captured for a panic, in bytes.
const DefaultStackSize = 4096

// PanicError is a panic caught by Recover. Stack is nil when stack capture
// is disabled.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// PanicResponder writes the response after a panic was recovered.
type PanicResponder func(w http.ResponseWriter, r *http.Request, pe *PanicError)

type recoverer struct {
	log       *slog.Logger
	respond   PanicResponder
	stackSize int
}

// RecoverOption configures Recover.
type RecoverOption func(*recoverer)

// WithRecoverStackSize caps the captured stack trace. Zero or less disables
// capture.
func WithRecoverStackSize(size int) RecoverOption {
	return func(rc *recoverer) { rc.stackSize = size }
}

// WithRecoverDisablePrintStack turns stack capture off.
func WithRecoverDisablePrintStack() RecoverOption {
	return WithRecoverStackSize(0)
}

// WithRecoverLogger sets the logger panics are reported to.
func WithRecoverLogger(l *slog.Logger) RecoverOption {
	return func(rc *recoverer) {
		if l != nil {
			rc.log = l
		}
	}
}

// WithRecoverHandler replaces the default 500 JSON response.
func WithRecoverHandler(fn PanicResponder) RecoverOption {
	return func(rc *recoverer) {
		if fn != nil {
			rc.respond = fn
		}
	}
}

// Recover turns handler panics into a logged error and a 500 response.
// http.ErrAbortHandler is re-raised so net/http still aborts the connection.
func Recover(opts ...RecoverOption) func(http.Handler) http.Handler {
	rc := &recoverer{
		log:       logger.NewNope(),
		respond:   writeInternalError,
		stackSize: DefaultStackSize,
	}
	for _, opt := range opts {
		opt(rc)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					rc.handle(w, r, rv)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func (rc *recoverer) handle(w http.ResponseWriter, r *http.Request, rv any) {
	if err, ok := rv.(error); ok && errors.Is(err, http.ErrAbortHandler) {
		panic(rv)
	}

	pe := &PanicError{Value: rv}
	attrs := []any{
		slog.Any("panic", rv),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if rc.stackSize > 0 {
		buf := make([]byte, rc.stackSize)
		pe.Stack = buf[:runtime.Stack(buf, false)]
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}

	rc.log.ErrorContext(r.Context(), "panic recovered", attrs...)
	rc.respond(w, r, pe)
}

func writeInternalError(w http.ResponseWriter, _ *http.Request, _ *PanicError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "internal_error",
		"message": "internal server error",
	})
}
