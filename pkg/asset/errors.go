package asset

import (
	"errors"
	"fmt"
)

// Sentinel errors for asset operations.
var (
	// Validation errors.
	ErrInvalidMimeType = errors.New("asset: file type not allowed")
	ErrPayloadTooLarge = errors.New("asset: file exceeds size limit")
	ErrEmptyPayload    = errors.New("asset: file is empty")

	// Store errors.
	ErrUploadFailed = errors.New("asset: upload failed")
	ErrStore        = errors.New("asset: store error")

	// Programming errors.
	ErrUnknownCategory = errors.New("asset: unknown category")
	ErrInvalidPolicy   = errors.New("asset: invalid policy")

	// Object key errors.
	ErrNoObject   = errors.New("asset: no object referenced")
	ErrInvalidURL = errors.New("asset: invalid object URL")
)

// ErrorKind is the stable classification of an asset failure.
// The HTTP layer maps kinds to status codes.
type ErrorKind string

// Error kinds.
const (
	KindInvalidMimeType ErrorKind = "invalid_mime_type"
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	KindEmptyPayload    ErrorKind = "empty_payload"
	KindUploadFailed    ErrorKind = "upload_failed"
	KindStoreError      ErrorKind = "store_error"
	KindUnknownCategory ErrorKind = "unknown_category"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidMimeType: ErrInvalidMimeType,
	KindPayloadTooLarge: ErrPayloadTooLarge,
	KindEmptyPayload:    ErrEmptyPayload,
	KindUploadFailed:    ErrUploadFailed,
	KindStoreError:      ErrStore,
	KindUnknownCategory: ErrUnknownCategory,
}

// Error is a classified asset failure with a human-readable message.
type Error struct {
	Err     error          // Underlying cause, if any
	Details map[string]any // Kind-specific data (limits, allowed types, ...)
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind, so
// errors.Is(err, ErrPayloadTooLarge) works on classified errors.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func newError(kind ErrorKind, msg string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

// KindOf returns the kind of a classified error, or "" if err is not classified.
func KindOf(err error) ErrorKind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	var serr *StoreError
	if errors.As(err, &serr) {
		return KindStoreError
	}
	return ""
}

// StoreError reports a failure of the remote store.
type StoreError struct {
	Err       error
	Op        string // "put", "delete" or "list"
	Transient bool   // Network or availability failure; retrying may succeed
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Transient {
		return fmt.Sprintf("store %s (transient): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// IsTransient reports whether err wraps a transient StoreError.
func IsTransient(err error) bool {
	var serr *StoreError
	return errors.As(err, &serr) && serr.Transient
}

// UploadFailed builds the upload_failed error for a failed store write.
// The store error stays reachable through errors.As and IsTransient.
func UploadFailed(err error) *Error {
	msg := "upload failed"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{
		Kind:    KindUploadFailed,
		Message: msg,
		Err:     err,
		Details: map[string]any{"transient": IsTransient(err)},
	}
}
