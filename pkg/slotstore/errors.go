package slotstore

import "errors"

var (
	ErrNotFound = errors.New("slotstore: slot not found")

	// ErrInvalidSlot is returned for a nil owner or an empty slot name.
	ErrInvalidSlot = errors.New("slotstore: invalid slot")

	// ErrInvalidUpload is returned for an upload without category or key.
	ErrInvalidUpload = errors.New("slotstore: invalid upload")

	// ErrCategoryMismatch is returned when an object of one category is
	// committed to a slot that holds another.
	ErrCategoryMismatch = errors.New("slotstore: category mismatch")
)
