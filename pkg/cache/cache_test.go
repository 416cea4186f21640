package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/cache"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemory(t *testing.T, opts ...cache.MemoryOption) (*cache.Memory[string], *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]cache.MemoryOption{cache.WithClock(clk.Now), cache.WithCleanupInterval(0)}, opts...)
	m := cache.NewMemory[string](opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m, clk
}

func TestMemory_GetSetDelete(t *testing.T) {
	t.Parallel()

	m, _ := newMemory(t)
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", "v1", 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	require.NoError(t, m.Set(ctx, "k", "v2", 0))
	v, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrNotFound)
	require.NoError(t, m.Delete(ctx, "k"))
}

func TestMemory_TTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ttl     time.Duration
		advance time.Duration
		found   bool
	}{
		{"explicit ttl not reached", time.Minute, 30 * time.Second, true},
		{"explicit ttl passed", time.Minute, 2 * time.Minute, false},
		{"default ttl passed", 0, 2 * time.Hour, false},
		{"default ttl not reached", 0, 30 * time.Minute, true},
		{"negative ttl never expires", -1, 1000 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, clk := newMemory(t)
			ctx := context.Background()
			require.NoError(t, m.Set(ctx, "k", "v", tt.ttl))
			clk.Advance(tt.advance)

			_, err := m.Get(ctx, "k")
			if tt.found {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, cache.ErrNotFound)
				assert.Zero(t, m.Len())
			}
		})
	}
}

func TestMemory_MaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	m, _ := newMemory(t, cache.WithMaxEntries(2))
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1", 0))
	require.NoError(t, m.Set(ctx, "b", "2", 0))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	_, err = m.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemory_Janitor(t *testing.T) {
	t.Parallel()

	m := cache.NewMemory[string](cache.WithCleanupInterval(10 * time.Millisecond))
	defer m.Close()

	require.NoError(t, m.Set(context.Background(), "k", "v", time.Millisecond))
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()

	m, _ := newMemory(t)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Set(context.Background(), "k", "v", 0), cache.ErrClosed)
	assert.ErrorIs(t, m.Delete(context.Background(), "k"), cache.ErrClosed)
}

func TestLoader_GetOrSet(t *testing.T) {
	t.Parallel()

	t.Run("computes once then replays", func(t *testing.T) {
		t.Parallel()

		m, _ := newMemory(t)
		l := cache.NewLoader[string](m)
		calls := 0
		fn := func(context.Context) (string, time.Duration, error) {
			calls++
			return "computed", time.Hour, nil
		}

		v, replayed, err := l.GetOrSet(context.Background(), "k", fn)
		require.NoError(t, err)
		assert.Equal(t, "computed", v)
		assert.False(t, replayed)

		v, replayed, err = l.GetOrSet(context.Background(), "k", fn)
		require.NoError(t, err)
		assert.Equal(t, "computed", v)
		assert.True(t, replayed)
		assert.Equal(t, 1, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()

		m, _ := newMemory(t)
		l := cache.NewLoader[string](m)
		boom := errors.New("boom")

		_, _, err := l.GetOrSet(context.Background(), "k", func(context.Context) (string, time.Duration, error) {
			return "", 0, boom
		})
		require.ErrorIs(t, err, boom)

		v, replayed, err := l.GetOrSet(context.Background(), "k", func(context.Context) (string, time.Duration, error) {
			return "ok", 0, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.False(t, replayed)
	})

	t.Run("concurrent callers share one call", func(t *testing.T) {
		t.Parallel()

		m, _ := newMemory(t)
		l := cache.NewLoader[string](m)
		var calls atomic.Int32
		release := make(chan struct{})

		const n = 8
		var started, wg sync.WaitGroup
		started.Add(n)
		replays := make([]bool, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				started.Done()
				_, replayed, err := l.GetOrSet(context.Background(), "k", func(context.Context) (string, time.Duration, error) {
					calls.Add(1)
					<-release
					return "v", 0, nil
				})
				assert.NoError(t, err)
				replays[i] = replayed
			}()
		}
		started.Wait()
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Contains(t, replays, true)
	})
}
