package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/lifecycle"
	"github.com/dmitrymomot/assetflow/pkg/slotstore"
)

// Response is the body of a successful upload. Besides the fixed fields it
// carries the stored URL under the category's record field name, so
// {"icon": url} can be merged straight into the owning record.
type Response struct {
	Category    asset.Category `json:"category"`
	URL         string         `json:"url"`
	ObjectKey   string         `json:"objectKey"`
	ContentType string         `json:"contentType,omitempty"`
	Size        int64          `json:"size,omitempty"`

	// Superseded is the URL the slot held before a bind.
	Superseded string `json:"superseded,omitempty"`

	// URLField is filled from the policy and rendered as an extra key.
	URLField string `json:"-"`
}

func newResponse(obj asset.StoredObject, p asset.Policy) Response {
	return Response{
		Category:    obj.Category,
		URL:         obj.URL,
		ObjectKey:   obj.Key,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		URLField:    p.URLField,
	}
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"category":  r.Category,
		"url":       r.URL,
		"objectKey": r.ObjectKey,
	}
	if r.ContentType != "" {
		out["contentType"] = r.ContentType
	}
	if r.Size > 0 {
		out["size"] = r.Size
	}
	if r.Superseded != "" {
		out["superseded"] = r.Superseded
	}
	if r.URLField != "" {
		if _, taken := out[r.URLField]; !taken {
			out[r.URLField] = r.URL
		}
	}
	return json.Marshal(out)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
}

// Error codes that are not asset kinds.
const (
	codeBadRequest    = "bad_request"
	codeNotFound      = "not_found"
	codeConflict      = "conflict"
	codeInternal      = "internal_error"
	codeRequestTooBig = "payload_too_large"
)

// StatusFor maps an asset error kind to its HTTP status code. Transient store
// failures map to 503 so clients know a retry may succeed.
func StatusFor(err error) int {
	switch asset.KindOf(err) {
	case asset.KindInvalidMimeType:
		return http.StatusUnsupportedMediaType
	case asset.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case asset.KindEmptyPayload:
		return http.StatusBadRequest
	case asset.KindUnknownCategory:
		return http.StatusNotFound
	case asset.KindUploadFailed, asset.KindStoreError:
		if asset.IsTransient(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, asset.ErrUnknownCategory), errors.Is(err, slotstore.ErrNotFound),
		errors.Is(err, ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRequestBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRecordUpload):
		return http.StatusServiceUnavailable
	case errors.Is(err, slotstore.ErrCategoryMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrNotMultipart), errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidIdempotency), errors.Is(err, ErrInvalidOwner),
		errors.Is(err, slotstore.ErrInvalidSlot), errors.Is(err, slotstore.ErrInvalidUpload),
		errors.Is(err, ErrInvalidObjectKey), errors.Is(err, lifecycle.ErrInvalidPayload):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorBody(err error, status int) ErrorResponse {
	var aerr *asset.Error
	if errors.As(err, &aerr) {
		return ErrorResponse{Error: string(aerr.Kind), Message: aerr.Message, Details: aerr.Details}
	}

	code := codeInternal
	switch status {
	case http.StatusBadRequest:
		code = codeBadRequest
	case http.StatusNotFound:
		code = codeNotFound
	case http.StatusConflict:
		code = codeConflict
	case http.StatusRequestEntityTooLarge:
		code = codeRequestTooBig
	}
	if errors.Is(err, asset.ErrUnknownCategory) {
		code = string(asset.KindUnknownCategory)
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	return ErrorResponse{Error: code, Message: msg}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "upload request failed",
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, errorBody(err, status))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
