package cache

import (
	"context"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryOption configures the in-memory cache.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now        func() time.Time
	defaultTTL time.Duration
	sweepEvery time.Duration
	maxEntries int
}

// WithDefaultTTL sets the TTL used when Set is called with zero. Default: 1h.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.defaultTTL = d }
}

// WithCleanupInterval sets how often expired entries are purged in the
// background. Zero disables purging; expired entries are then only dropped
// when read. Default: 1m.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.sweepEvery = d }
}

// WithMaxEntries caps the number of entries, evicting the least recently used
// one first. Zero means unlimited.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) { o.maxEntries = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) {
		if now != nil {
			o.now = now
		}
	}
}

type item[V any] struct {
	value    V
	deadline time.Time // zero: no expiry
}

func (it item[V]) expiredAt(now time.Time) bool {
	return !it.deadline.IsZero() && now.After(it.deadline)
}

// Memory is a process-local cache backed by an LRU with per-entry TTLs.
// Use it for single-instance deployments; replicas need Redis.
type Memory[V any] struct {
	lru  *lru.Cache[string, item[V]]
	opts memoryOptions
	stop chan struct{}

	// mu makes read-expire-remove sequences atomic with respect to Set.
	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory cache. Close stops its background purge.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := memoryOptions{
		now:        time.Now,
		defaultTTL: time.Hour,
		sweepEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	size := o.maxEntries
	if size <= 0 {
		size = math.MaxInt
	}
	// lru.New only fails for non-positive sizes.
	l, _ := lru.New[string, item[V]](size)

	m := &Memory[V]{lru: l, opts: o, stop: make(chan struct{})}
	if o.sweepEvery > 0 {
		go m.sweepLoop()
	}
	return m
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lru.Get(key)
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	if it.expiredAt(m.opts.now()) {
		m.lru.Remove(key)
		var zero V
		return zero, ErrNotFound
	}
	return it.value, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	it := item[V]{value: value}
	switch {
	case ttl == 0 && m.opts.defaultTTL > 0:
		it.deadline = m.opts.now().Add(m.opts.defaultTTL)
	case ttl > 0:
		it.deadline = m.opts.now().Add(ttl)
	}
	m.lru.Add(key, it)
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.lru.Remove(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet purged.
func (m *Memory[V]) Len() int {
	return m.lru.Len()
}

// Close stops the background purge. Calling it again is a no-op.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.stop)
	}
	return nil
}

func (m *Memory[V]) sweepLoop() {
	t := time.NewTicker(m.opts.sweepEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep drops expired entries without touching recency.
func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	for _, key := range m.lru.Keys() {
		if it, ok := m.lru.Peek(key); ok && it.expiredAt(now) {
			m.lru.Remove(key)
		}
	}
}

var _ Cache[any] = (*Memory[any])(nil)
