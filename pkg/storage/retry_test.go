package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/storage"
)

// flakyStore fails the first `failures` calls with err, consuming `consume`
// bytes of the body before failing.
type flakyStore struct {
	err      error
	bodies   []string
	puts     int
	deletes  int
	failures int
	consume  int
	block    bool
	mu       sync.Mutex
}

func (s *flakyStore) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	s.mu.Lock()
	s.puts++
	fail := s.puts <= s.failures
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return asset.StoredObject{}, ctx.Err()
	}

	if fail {
		if s.consume > 0 {
			_, _ = io.CopyN(io.Discard, u.Body, int64(s.consume))
		}
		return asset.StoredObject{}, s.err
	}

	data, err := io.ReadAll(u.Body)
	if err != nil {
		return asset.StoredObject{}, err
	}
	s.mu.Lock()
	s.bodies = append(s.bodies, string(data))
	s.mu.Unlock()
	return asset.StoredObject{URL: "https://store/" + p.Folder + "/k.png", Key: "k", Category: p.Category}, nil
}

func (s *flakyStore) Delete(ctx context.Context, p asset.Policy, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.deletes <= s.failures {
		return s.err
	}
	return nil
}

var (
	transientErr = &asset.StoreError{Op: "put", Transient: true, Err: errors.New("503 slow down")}
	permanentErr = &asset.StoreError{Op: "put", Err: errors.New("access denied")}
)

func fastRetry(store asset.Store, opts ...storage.RetryOption) *storage.Retrying {
	opts = append([]storage.RetryOption{
		storage.WithMaxAttempts(3),
		storage.WithBackoff(time.Millisecond, 2*time.Millisecond),
	}, opts...)
	return storage.WithRetry(store, opts...)
}

func TestRetrying_Put(t *testing.T) {
	t.Parallel()

	icons := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	t.Run("retries transient errors until success", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 2}
		obj, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: strings.NewReader("payload"), MimeType: "image/png", Size: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, "k", obj.Key)
		assert.Equal(t, 3, inner.puts)
	})

	t.Run("replays seekable body from the start", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 1, consume: 3}
		_, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: strings.NewReader("payload"), MimeType: "image/png", Size: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, inner.puts)
		assert.Equal(t, []string{"payload"}, inner.bodies)
	})

	t.Run("does not retry a consumed stream", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 1, consume: 3}
		body := io.MultiReader(strings.NewReader("payload"))
		_, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: body, MimeType: "image/png", Size: asset.SizeUnknown,
		})
		require.ErrorIs(t, err, asset.ErrStore)
		assert.Equal(t, 1, inner.puts)
	})

	t.Run("retries an untouched stream", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 1}
		body := io.MultiReader(strings.NewReader("payload"))
		_, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: body, MimeType: "image/png", Size: asset.SizeUnknown,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, inner.puts)
		assert.Equal(t, []string{"payload"}, inner.bodies)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: permanentErr, failures: 5}
		_, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: strings.NewReader("payload"), MimeType: "image/png", Size: 7,
		})
		require.ErrorIs(t, err, permanentErr)
		assert.Equal(t, 1, inner.puts)
	})

	t.Run("propagates the last error after exhaustion", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 10}
		_, err := fastRetry(inner).Put(context.Background(), icons, asset.Upload{
			Body: strings.NewReader("payload"), MimeType: "image/png", Size: 7,
		})
		require.Equal(t, transientErr, err)
		assert.Equal(t, 3, inner.puts)
	})

	t.Run("per-call timeout is transient", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{block: true}
		_, err := fastRetry(inner,
			storage.WithMaxAttempts(2),
			storage.WithPutTimeout(5*time.Millisecond),
		).Put(context.Background(), icons, asset.Upload{
			Body: strings.NewReader("payload"), MimeType: "image/png", Size: 7,
		})
		require.ErrorIs(t, err, storage.ErrCallTimeout)
		require.True(t, asset.IsTransient(err))
		assert.Equal(t, 2, inner.puts)
	})
}

func TestRetrying_Delete(t *testing.T) {
	t.Parallel()

	icons := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	t.Run("retries transient errors", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: transientErr, failures: 2}
		require.NoError(t, fastRetry(inner).Delete(context.Background(), icons, "abc123"))
		assert.Equal(t, 3, inner.deletes)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		t.Parallel()

		inner := &flakyStore{err: permanentErr, failures: 2}
		require.ErrorIs(t, fastRetry(inner).Delete(context.Background(), icons, "abc123"), permanentErr)
		assert.Equal(t, 1, inner.deletes)
	})

	t.Run("canceled context returns a store error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		inner := &flakyStore{}
		err := fastRetry(inner).Delete(ctx, icons, "abc123")
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, asset.ErrStore)
		assert.Zero(t, inner.deletes)
	})
}

func TestRetrying_DelegatesCapabilities(t *testing.T) {
	t.Parallel()

	icons := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	mem := storage.NewMemory("")
	wrapped := storage.WithRetry(mem)
	require.NoError(t, wrapped.Ping(context.Background()))
	require.Same(t, mem, wrapped.Unwrap())
	require.NoError(t, wrapped.List(context.Background(), icons, func(asset.ListedObject) error { return nil }))

	noList := storage.WithRetry(&flakyStore{})
	err := noList.List(context.Background(), icons, func(asset.ListedObject) error { return nil })
	require.ErrorIs(t, err, storage.ErrListNotSupported)
}
