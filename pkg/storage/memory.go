package storage

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// MemoryObject is an object held by the in-memory store.
type MemoryObject struct {
	Modified    time.Time
	Metadata    map[string]string
	ContentType string
	Data        []byte
}

// Memory is an in-memory asset.Store for tests and local development.
// It is safe for concurrent use.
type Memory struct {
	objects map[string]MemoryObject
	now     func() time.Time
	baseURL string
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory store. Object URLs are built from
// baseURL (default: DefaultMemoryBaseURL).
func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = DefaultMemoryBaseURL
	}
	return &Memory{
		objects: make(map[string]MemoryObject),
		now:     time.Now,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Put reads the upload body fully and stores it under a fresh key.
func (m *Memory) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return asset.StoredObject{}, storeError("put", err)
	}

	data, err := io.ReadAll(u.Body)
	if err != nil {
		return asset.StoredObject{}, storeError("put", fmt.Errorf("read body: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return asset.StoredObject{}, storeError("put", err)
	}

	key, name := newObjectName(u)
	objectPath := asset.ObjectPath(p.Folder, name)
	ct := contentType(u)

	m.mu.Lock()
	m.objects[objectPath] = MemoryObject{
		Modified:    m.now(),
		Metadata:    objectMetadata(p, u),
		ContentType: ct,
		Data:        data,
	}
	m.mu.Unlock()

	return asset.StoredObject{
		URL:         m.baseURL + "/" + objectPath,
		Key:         key,
		Category:    p.Category,
		ContentType: ct,
		Size:        int64(len(data)),
	}, nil
}

// Delete removes every object stored under the key in the policy folder.
// A missing key is not an error.
func (m *Memory) Delete(ctx context.Context, p asset.Policy, key string) error {
	if err := ctx.Err(); err != nil {
		return storeError("delete", err)
	}
	if !validKey(key) {
		return storeError("delete", fmt.Errorf("%w: %q", ErrInvalidKey, key))
	}

	exact := asset.ObjectPath(p.Folder, key)

	m.mu.Lock()
	defer m.mu.Unlock()
	for objectPath := range m.objects {
		if objectPath == exact || (strings.HasPrefix(objectPath, exact+".") && keyFromName(objectPath) == key) {
			delete(m.objects, objectPath)
		}
	}
	return nil
}

// List calls fn for every object in the policy folder, in path order.
func (m *Memory) List(ctx context.Context, p asset.Policy, fn func(asset.ListedObject) error) error {
	prefix := asset.ObjectPath(p.Folder, "")

	m.mu.RLock()
	var listed []asset.ListedObject
	for _, objectPath := range slices.Sorted(maps.Keys(m.objects)) {
		rest, ok := strings.CutPrefix(objectPath, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		obj := m.objects[objectPath]
		listed = append(listed, asset.ListedObject{
			Key:          keyFromName(objectPath),
			Size:         int64(len(obj.Data)),
			LastModified: obj.Modified,
		})
	}
	m.mu.RUnlock()

	for _, obj := range listed {
		if err := ctx.Err(); err != nil {
			return storeError("list", err)
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Get returns the object stored at the given path.
func (m *Memory) Get(objectPath string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectPath]
	return obj, ok
}

// Paths returns all stored object paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.objects))
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// SetClock replaces the clock used for modification times.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

var (
	_ asset.Store  = (*Memory)(nil)
	_ asset.Lister = (*Memory)(nil)
	_ Pinger       = (*Memory)(nil)
)
