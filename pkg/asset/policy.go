package asset

import (
	"fmt"
	"slices"
	"strings"
)

// Policy holds the upload constraints and storage settings of one category.
type Policy struct {
	// Transform is an optional store-side processing step (e.g. bounding-box resize).
	Transform *Transform

	// Category this policy applies to.
	Category Category

	// Folder is the remote store folder objects are written to.
	Folder string

	// Field is the multipart form field carrying the upload.
	Field string

	// URLField is the record payload field that receives the stored URL.
	URLField string

	// Media tells the store what kind of payload to expect.
	Media Media

	// AllowedTypes lists accepted MIME types (exact, case-insensitive).
	AllowedTypes []string

	// MaxSize is the maximum payload size in bytes.
	MaxSize int64
}

// Transform is applied by the store when the object is written.
type Transform struct {
	Mode   string `yaml:"mode"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// TransformModeLimit shrinks the payload to fit the bounding box, never enlarging it.
const TransformModeLimit = "limit"

// String renders the transform as "mode:WIDTHxHEIGHT".
func (t *Transform) String() string {
	if t == nil {
		return ""
	}
	mode := t.Mode
	if mode == "" {
		mode = TransformModeLimit
	}
	return fmt.Sprintf("%s:%dx%d", mode, t.Width, t.Height)
}

// Allows reports whether the MIME type is in the allow-list.
// Parameters such as "; charset=utf-8" are ignored.
func (p Policy) Allows(mimeType string) bool {
	mimeType = normalizeMIME(mimeType)
	if mimeType == "" {
		return false
	}
	for _, allowed := range p.AllowedTypes {
		if normalizeMIME(allowed) == mimeType {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate registry state.
func (p Policy) clone() Policy {
	p.AllowedTypes = slices.Clone(p.AllowedTypes)
	if p.Transform != nil {
		t := *p.Transform
		p.Transform = &t
	}
	return p
}

// validate checks the policy is usable.
func (p Policy) validate() error {
	if !p.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, p.Category)
	}
	if strings.Trim(p.Folder, "/ ") == "" {
		return fmt.Errorf("%w: %s: folder is required", ErrInvalidPolicy, p.Category)
	}
	if p.MaxSize <= 0 {
		return fmt.Errorf("%w: %s: max size must be positive", ErrInvalidPolicy, p.Category)
	}
	if len(p.AllowedTypes) == 0 {
		return fmt.Errorf("%w: %s: at least one MIME type is required", ErrInvalidPolicy, p.Category)
	}
	if p.Transform != nil && (p.Transform.Width <= 0 || p.Transform.Height <= 0) {
		return fmt.Errorf("%w: %s: transform needs positive width and height", ErrInvalidPolicy, p.Category)
	}
	return nil
}
