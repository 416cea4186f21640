// Package assettest provides a recording asset.Store for tests.
package assettest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// Operations recorded by Store.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// Call is one recorded store call.
type Call struct {
	Op       string
	Category asset.Category
	Folder   string
	Key      string
}

// Store records every call and keeps stored objects in memory.
// Keys are sequential ("obj001", "obj002", ...) so tests can predict them.
type Store struct {
	objects   map[string]asset.StoredObject
	putErr    error
	deleteErr error
	onPut     func(ctx context.Context)
	baseURL   string
	calls     []Call
	seq       int
	mu        sync.Mutex
}

// NewStore creates an empty recording store.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]asset.StoredObject),
		baseURL: "https://store.test",
	}
}

// FailPut makes every following Put return err. nil restores success.
func (s *Store) FailPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// FailDelete makes every following Delete return err. nil restores success.
func (s *Store) FailDelete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// OnPut registers a hook that runs after the body was consumed and before
// Put returns.
func (s *Store) OnPut(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPut = fn
}

// Put implements asset.Store.
func (s *Store) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	s.mu.Lock()
	s.seq++
	key := fmt.Sprintf("obj%03d", s.seq)
	s.calls = append(s.calls, Call{Op: OpPut, Category: p.Category, Folder: p.Folder, Key: key})
	putErr, onPut := s.putErr, s.onPut
	s.mu.Unlock()

	var size int64
	if u.Body != nil {
		n, err := io.Copy(io.Discard, u.Body)
		if err != nil {
			return asset.StoredObject{}, &asset.StoreError{Op: OpPut, Err: err}
		}
		size = n
	}
	if onPut != nil {
		onPut(ctx)
	}
	if putErr != nil {
		return asset.StoredObject{}, putErr
	}

	obj := asset.StoredObject{
		URL:         s.baseURL + "/" + asset.ObjectPath(p.Folder, key+asset.Ext(u)),
		Key:         key,
		Category:    p.Category,
		ContentType: u.MimeType,
		Size:        size,
	}

	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()
	return obj, nil
}

// Delete implements asset.Store.
func (s *Store) Delete(_ context.Context, p asset.Policy, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: OpDelete, Category: p.Category, Folder: p.Folder, Key: key})
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

// Calls returns a copy of the recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many calls of op were recorded.
func (s *Store) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Deleted returns the keys passed to Delete, in call order.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, c := range s.calls {
		if c.Op == OpDelete {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Has reports whether an object with key is currently stored.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

var _ asset.Store = (*Store)(nil)
