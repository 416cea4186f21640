package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultCORSMaxAge is the default preflight cache duration.
const DefaultCORSMaxAge = 12 * time.Hour

// CORS defaults. Upload clients send Idempotency-Key and read the replay and
// request ID headers back; slot routes need PUT and DELETE.
var (
	DefaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}
	DefaultCORSHeaders = []string{
		"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Idempotency-Key", "X-Request-ID",
	}
	DefaultCORSExposeHeaders = []string{"Idempotent-Replayed", "X-Request-ID"}
)

type corsPolicy struct {
	origins     map[string]struct{}
	originFunc  func(origin string) bool
	methods     []string
	headers     []string
	expose      []string
	maxAge      time.Duration
	anyOrigin   bool
	credentials bool
}

// CORSOption configures the CORS middleware.
type CORSOption func(*corsPolicy)

// WithAllowOrigins replaces the allowed origins. "*" allows any origin.
// Origins are compared case-insensitively.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(p *corsPolicy) {
		p.anyOrigin = false
		p.origins = make(map[string]struct{}, len(origins))
		for _, o := range origins {
			o = strings.ToLower(strings.TrimSpace(o))
			if o == "*" {
				p.anyOrigin = true
			}
			if o != "" {
				p.origins[o] = struct{}{}
			}
		}
	}
}

// WithAllowOriginFunc decides per origin and takes precedence over the
// allowed origins list.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(p *corsPolicy) {
		p.originFunc = fn
	}
}

// WithAllowMethods replaces the methods allowed in preflight responses.
func WithAllowMethods(methods ...string) CORSOption {
	return func(p *corsPolicy) {
		p.methods = methods
	}
}

// WithAllowHeaders replaces the request headers allowed in preflight responses.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(p *corsPolicy) {
		p.headers = headers
	}
}

// WithExposeHeaders replaces the response headers scripts may read.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(p *corsPolicy) {
		p.expose = headers
	}
}

// WithAllowCredentials allows cookies and authorization headers. The request
// origin is echoed instead of "*".
func WithAllowCredentials() CORSOption {
	return func(p *corsPolicy) {
		p.credentials = true
	}
}

// WithMaxAge sets how long browsers may cache a preflight response.
func WithMaxAge(d time.Duration) CORSOption {
	return func(p *corsPolicy) {
		p.maxAge = d
	}
}

// CORS answers preflight requests and adds CORS headers to responses for
// allowed origins. Requests from other origins pass through untouched; the
// browser blocks them.
func CORS(opts ...CORSOption) func(http.Handler) http.Handler {
	p := &corsPolicy{
		methods: DefaultCORSMethods,
		headers: DefaultCORSHeaders,
		expose:  DefaultCORSExposeHeaders,
		maxAge:  DefaultCORSMaxAge,
	}
	WithAllowOrigins("*")(p)
	for _, opt := range opts {
		opt(p)
	}

	methods := strings.Join(p.methods, ", ")
	headers := strings.Join(p.headers, ", ")
	expose := strings.Join(p.expose, ", ")
	maxAge := strconv.Itoa(int(p.maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !p.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if p.anyOrigin && !p.credentials && p.originFunc == nil {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if p.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if p.maxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func (p *corsPolicy) allows(origin string) bool {
	if p.originFunc != nil {
		return p.originFunc(origin)
	}
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[strings.ToLower(origin)]
	return ok
}
