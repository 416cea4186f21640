package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/internal/server"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

type recorder struct {
	calls []string
	mu    sync.Mutex
}

func (r *recorder) hook(name string, err error) server.Hook {
	return func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return err
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestServe_ServesAndShutsDown(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := server.New(server.Config{ShutdownTimeout: time.Second}, handler,
		server.WithStartHook(rec.hook("start", nil)),
		server.WithShutdownHook(rec.hook("jobs", nil)),
		server.WithShutdownHook(rec.hook("db", nil)),
	)

	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "ok"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, []string{"start", "jobs", "db"}, rec.got())
}

func TestServe_ShutdownHookErrorsAreJoined(t *testing.T) {
	t.Parallel()

	errA, errB := errors.New("a"), errors.New("b")
	rec := &recorder{}
	srv := server.New(server.Config{}, http.NotFoundHandler(),
		server.WithShutdownHook(rec.hook("a", errA)),
		server.WithShutdownHook(rec.hook("b", errB)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Serve(ctx, listen(t))
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	assert.Equal(t, []string{"a", "b"}, rec.got())
}

func TestServe_StartHookFailureAborts(t *testing.T) {
	t.Parallel()

	startErr := errors.New("migrations failed")
	rec := &recorder{}
	srv := server.New(server.Config{}, http.NotFoundHandler(),
		server.WithStartHook(rec.hook("start", startErr)),
		server.WithShutdownHook(rec.hook("cleanup", nil)),
	)

	err := srv.Serve(context.Background(), listen(t))
	require.ErrorIs(t, err, startErr)
	assert.Equal(t, []string{"start", "cleanup"}, rec.got())
}
