package asset

import (
	"fmt"
	"strings"
)

// Rule is one metadata check applied to an upload before any I/O happens.
type Rule interface {
	// Check returns a classified *Error if the upload violates the rule.
	Check(p Policy, u Upload) error
}

// Validate runs the policy's rules in order and returns the first failure:
// MIME type, then maximum size, then empty payload.
// Uploads of unknown size (Size < 0) skip the size rules; the pipeline enforces
// them while streaming.
func Validate(p Policy, u Upload) error {
	return ValidateWith(p, u, AllowedTypes(), MaxSize(), NotEmpty())
}

// ValidateWith runs the given rules in order and returns the first failure.
func ValidateWith(p Policy, u Upload, rules ...Rule) error {
	for _, rule := range rules {
		if err := rule.Check(p, u); err != nil {
			return err
		}
	}
	return nil
}

type allowedTypesRule struct{}

// AllowedTypes rejects uploads whose MIME type is not in the policy allow-list.
func AllowedTypes() Rule {
	return allowedTypesRule{}
}

// Check implements Rule.
func (allowedTypesRule) Check(p Policy, u Upload) error {
	if p.Allows(u.MimeType) {
		return nil
	}
	return &Error{
		Kind:    KindInvalidMimeType,
		Message: fmt.Sprintf("file type %q is not allowed; allowed types: %s", u.MimeType, strings.Join(p.AllowedTypes, ", ")),
		Details: map[string]any{
			"type":    u.MimeType,
			"allowed": p.AllowedTypes,
		},
	}
}

type maxSizeRule struct{}

// MaxSize rejects uploads larger than the policy limit.
func MaxSize() Rule {
	return maxSizeRule{}
}

// Check implements Rule.
func (maxSizeRule) Check(p Policy, u Upload) error {
	if u.Size <= p.MaxSize {
		return nil
	}
	return TooLarge(p)
}

// TooLarge builds the payload_too_large error for a policy.
func TooLarge(p Policy) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Message: fmt.Sprintf("file size is too large; max size is %s", formatSize(p.MaxSize)),
		Details: map[string]any{
			"limit": p.MaxSize,
		},
	}
}

type notEmptyRule struct{}

// NotEmpty rejects zero-byte uploads.
func NotEmpty() Rule {
	return notEmptyRule{}
}

// Check implements Rule.
func (notEmptyRule) Check(_ Policy, u Upload) error {
	if u.Size != 0 {
		return nil
	}
	return Empty()
}

// Empty builds the empty_payload error.
func Empty() *Error {
	return &Error{
		Kind:    KindEmptyPayload,
		Message: "file is empty",
		Details: map[string]any{},
	}
}

// formatSize renders a byte count the way limits are usually quoted ("2MB").
func formatSize(n int64) string {
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
