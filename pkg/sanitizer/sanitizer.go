// Package sanitizer scrubs user-supplied strings before they are stored as
// object metadata or echoed back to clients.
package sanitizer

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// MaxFilenameLength caps sanitized filenames.
const MaxFilenameLength = 128

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
}

// StripHTML removes all markup and returns plain text.
func StripHTML(s string) string {
	initPolicies()
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// Filename turns a client-provided filename into a safe, ASCII-only base name
// suitable for object metadata headers. Directory components, markup and control
// characters are dropped; anything outside printable ASCII becomes "_".
// Returns "" when nothing usable is left.
func Filename(name string) string {
	name = StripHTML(name)

	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
		case r > unicode.MaxASCII || r == '"':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
		if b.Len() >= MaxFilenameLength {
			break
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "." || out == ".." {
		return ""
	}
	return out
}
