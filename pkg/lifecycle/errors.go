package lifecycle

import "errors"

var (
	// ErrCommitFailed wraps errors returned by a CommitFunc. The new object is
	// left orphaned and nothing is deleted.
	ErrCommitFailed = errors.New("lifecycle: commit failed")

	// ErrClearFailed wraps errors returned by a ClearFunc.
	ErrClearFailed = errors.New("lifecycle: clear failed")

	ErrNilCommit = errors.New("lifecycle: commit func is required")
	ErrNilClear  = errors.New("lifecycle: clear func is required")

	// ErrClosed is returned by an AsyncDeleter after Close.
	ErrClosed = errors.New("lifecycle: deleter closed")

	ErrInvalidPayload = errors.New("lifecycle: invalid delete payload")
)
