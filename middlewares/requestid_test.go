package middlewares_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/middlewares"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		opts    []middlewares.RequestIDOption
		want    string
	}{
		{name: "generated", want: "gen-1", opts: []middlewares.RequestIDOption{middlewares.WithRequestIDGenerator(func() string { return "gen-1" })}},
		{name: "from X-Request-ID", headers: map[string]string{"X-Request-ID": "upstream"}, want: "upstream"},
		{name: "from X-Correlation-ID", headers: map[string]string{"X-Correlation-ID": "corr"}, want: "corr"},
		{
			name:    "first header wins",
			headers: map[string]string{"X-Request-ID": "first", "X-Correlation-ID": "second"},
			want:    "first",
		},
		{
			name:    "custom headers",
			headers: map[string]string{"X-Trace": "trace-1", "X-Request-ID": "ignored"},
			opts:    []middlewares.RequestIDOption{middlewares.WithRequestIDHeaders("X-Trace")},
			want:    "trace-1",
		},
		{
			name:    "oversized upstream id is replaced",
			headers: map[string]string{"X-Request-ID": strings.Repeat("a", 200)},
			opts:    []middlewares.RequestIDOption{middlewares.WithRequestIDGenerator(func() string { return "gen-2" })},
			want:    "gen-2",
		},
		{
			name:    "upstream id with control characters is replaced",
			headers: map[string]string{"X-Request-ID": "abc\tinjected"},
			opts:    []middlewares.RequestIDOption{middlewares.WithRequestIDGenerator(func() string { return "gen-3" })},
			want:    "gen-3",
		},
		{
			name:    "invalid first header falls back to the next",
			headers: map[string]string{"X-Request-ID": "has space", "X-Correlation-ID": "corr"},
			want:    "corr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := middlewares.RequestID(tt.opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = middlewares.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := serve(h, req)

			assert.Equal(t, tt.want, seen)
			assert.Equal(t, tt.want, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRequestID_DefaultGeneratorIsUUID(t *testing.T) {
	t.Parallel()

	rec := serve(middlewares.RequestID()(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRequestID_ResponseHeader(t *testing.T) {
	t.Parallel()

	h := middlewares.RequestID(middlewares.WithRequestIDResponseHeader("X-Trace-ID"))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := serve(h, req)

	assert.Equal(t, "abc", rec.Header().Get("X-Trace-ID"))
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetRequestID_Missing(t *testing.T) {
	t.Parallel()
	assert.Empty(t, middlewares.GetRequestID(context.Background()))
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, logger.Config{}, middlewares.RequestIDExtractor())

	log.InfoContext(middlewares.WithRequestID(context.Background(), "req-42"), "hello")
	log.InfoContext(context.Background(), "no id")

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "req-42", first["request_id"])
	assert.NotContains(t, second, "request_id")
}
