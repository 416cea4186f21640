package health

import (
	"encoding/json"
	"net/http"
	"strings"
)

// LivenessHandler reports that the process is up. It runs no checks.
func LivenessHandler() http.HandlerFunc {
	healthy := &Response{Status: StatusHealthy}
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, healthy)
	}
}

// ReadinessHandler runs checks on every request and answers 503 when any of
// them fails.
func ReadinessHandler(checks Checks, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, runChecks(r.Context(), checks, cfg))
	}
}

// respond writes resp as JSON when the client asks for it (Accept header or
// ?format=json) and as a short text otherwise. HEAD requests get the status
// only.
func respond(w http.ResponseWriter, r *http.Request, resp *Response) {
	status, text := http.StatusOK, "OK"
	if resp.Status != StatusHealthy {
		status, text = http.StatusServiceUnavailable, "Service Unavailable"
	}

	w.Header().Set("Cache-Control", "no-store")
	asJSON := r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
	if asJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if asJSON {
		_ = json.NewEncoder(w).Encode(resp)
		return
	}
	_, _ = w.Write([]byte(text))
}
