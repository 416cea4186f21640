package asset

import (
	"net/url"
	"path"
	"strings"
)

// placeholderURL is a default value some records carry instead of an empty URL.
const placeholderURL = "http"

// ObjectKeyFromURL derives the object key from a stored URL: the last path
// segment with its final extension removed. Query strings and fragments are
// ignored and escaped segments are decoded.
//
// Returns ErrNoObject for empty or placeholder URLs and ErrInvalidURL when no
// key can be derived.
func ObjectKeyFromURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || rawURL == placeholderURL {
		return "", ErrNoObject
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}

	p := u.EscapedPath()
	if p == "" {
		return "", ErrInvalidURL
	}
	segment := p[strings.LastIndex(p, "/")+1:]
	segment, err = url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidURL
	}

	key := strings.TrimSuffix(segment, path.Ext(segment))
	if key == "" || key == "." || key == ".." {
		return "", ErrInvalidURL
	}
	return key, nil
}

// ObjectPath joins a folder and a file name into a store path.
func ObjectPath(folder, name string) string {
	return strings.Trim(folder, "/") + "/" + name
}
