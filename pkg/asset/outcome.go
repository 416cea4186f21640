package asset

import "fmt"

// StoredObject references an object held by the remote store.
type StoredObject struct {
	// URL is the fully-qualified, store-assigned access URL.
	URL string `json:"url"`

	// Key is derived from URL and used for deletion.
	Key string `json:"objectKey"`

	Category    Category `json:"category"`
	ContentType string   `json:"contentType,omitempty"`
	Size        int64    `json:"size,omitempty"`
}

// IsZero reports whether the object is unset.
func (o StoredObject) IsZero() bool {
	return o.URL == "" && o.Key == ""
}

// ObjectFromURL rebuilds an object reference from a stored URL.
// Returns ErrNoObject when the URL is empty or a placeholder.
func ObjectFromURL(c Category, rawURL string) (StoredObject, error) {
	key, err := ObjectKeyFromURL(rawURL)
	if err != nil {
		return StoredObject{}, err
	}
	return StoredObject{URL: rawURL, Key: key, Category: c}, nil
}

// Outcome is the result of one ingest call: either a stored object or a
// classified rejection, never both.
type Outcome struct {
	err    *Error
	object StoredObject
}

// Success wraps a stored object.
func Success(obj StoredObject) Outcome {
	return Outcome{object: obj}
}

// Rejected builds a rejected outcome.
func Rejected(kind ErrorKind, msg string) Outcome {
	return Outcome{err: newError(kind, msg, nil)}
}

// RejectedWith wraps an existing classified error.
// A nil error is treated as an upload failure so the outcome is never empty.
func RejectedWith(err *Error) Outcome {
	if err == nil {
		err = newError(KindUploadFailed, "upload failed", nil)
	}
	return Outcome{err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.err == nil
}

// Object returns the stored object and true on success.
func (o Outcome) Object() (StoredObject, bool) {
	if o.err != nil {
		return StoredObject{}, false
	}
	return o.object, true
}

// Err returns the rejection, or nil on success.
func (o Outcome) Err() error {
	if o.err == nil {
		return nil
	}
	return o.err
}

// Kind returns the rejection kind, or "" on success.
func (o Outcome) Kind() ErrorKind {
	if o.err == nil {
		return ""
	}
	return o.err.Kind
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o.err != nil {
		return fmt.Sprintf("rejected(%s: %s)", o.err.Kind, o.err.Message)
	}
	return fmt.Sprintf("success(%s)", o.object.URL)
}
