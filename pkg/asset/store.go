package asset

import (
	"context"
	"io"
	"time"
)

// Upload is one incoming binary payload. It lives for a single request.
type Upload struct {
	// Body streams the payload. It is read at most once.
	Body io.Reader

	Category Category
	Filename string
	MimeType string

	// Size is the declared payload size in bytes, or -1 when unknown.
	Size int64
}

// SizeUnknown marks an upload whose size is only known after streaming.
const SizeUnknown int64 = -1

// Store is the capability set required from a remote content store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put streams the upload into the policy folder and returns the stored object.
	// The policy transform is passed to the store, not applied locally.
	Put(ctx context.Context, p Policy, u Upload) (StoredObject, error)

	// Delete removes the object with the given key from the policy folder.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, p Policy, key string) error
}

// ListedObject is an object found while listing a store folder.
type ListedObject struct {
	LastModified time.Time
	Key          string
	Size         int64
}

// Lister is implemented by stores that can enumerate a policy folder.
// The reconciliation sweep depends on it.
type Lister interface {
	List(ctx context.Context, p Policy, fn func(ListedObject) error) error
}
