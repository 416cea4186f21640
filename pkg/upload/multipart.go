package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// ingest streams the policy's form field from r through the pipeline.
func (h *Handler) ingest(ctx context.Context, w http.ResponseWriter, r *http.Request, p asset.Policy) (asset.StoredObject, error) {
	u, err := h.readUpload(w, r, p)
	if err != nil {
		return asset.StoredObject{}, err
	}

	outcome := h.pipeline.Ingest(ctx, u)
	obj, ok := outcome.Object()
	if !ok {
		if maxBytesError(outcome.Err()) {
			return asset.StoredObject{}, asset.TooLarge(p)
		}
		return asset.StoredObject{}, outcome.Err()
	}
	return obj, nil
}

// readUpload positions the multipart stream at the part named by the policy
// field and returns it as an upload. The part is not buffered: the pipeline
// reads it straight from the request body.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, p asset.Policy) (asset.Upload, error) {
	limit := p.MaxSize + h.overhead
	if r.ContentLength > limit {
		return asset.Upload{}, asset.TooLarge(p)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mr, err := r.MultipartReader()
	if err != nil {
		return asset.Upload{}, fmt.Errorf("%w: %w", ErrNotMultipart, err)
	}

	for {
		part, err := mr.NextPart()
		switch {
		case errors.Is(err, io.EOF):
			return asset.Upload{}, fmt.Errorf("%w: %q", ErrMissingField, p.Field)
		case maxBytesError(err):
			return asset.Upload{}, fmt.Errorf("%w: %w", ErrRequestBodyTooLarge, err)
		case err != nil:
			return asset.Upload{}, fmt.Errorf("%w: %w", ErrNotMultipart, err)
		}

		if part.FormName() != p.Field {
			if _, err := io.Copy(io.Discard, part); err != nil {
				if maxBytesError(err) {
					return asset.Upload{}, fmt.Errorf("%w: %w", ErrRequestBodyTooLarge, err)
				}
				return asset.Upload{}, fmt.Errorf("%w: %w", ErrNotMultipart, err)
			}
			continue
		}

		return asset.Upload{
			Body:     part,
			Category: p.Category,
			Filename: part.FileName(),
			MimeType: partType(part),
			Size:     partSize(part),
		}, nil
	}
}

// partType returns the declared part type, falling back to the filename
// extension.
func partType(part *multipart.Part) string {
	if ct := part.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ext := filepath.Ext(part.FileName()); ext != "" {
		return mime.TypeByExtension(ext)
	}
	return ""
}

// partSize returns the part's declared Content-Length, if the client sent one.
func partSize(part *multipart.Part) int64 {
	n, err := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 64)
	if err != nil || n < 0 {
		return asset.SizeUnknown
	}
	return n
}
