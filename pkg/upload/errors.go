package upload

import "errors"

var (
	ErrNotMultipart        = errors.New("upload: request is not multipart/form-data")
	ErrMissingField        = errors.New("upload: form field not found")
	ErrInvalidIdempotency  = errors.New("upload: invalid Idempotency-Key header")
	ErrInvalidOwner        = errors.New("upload: invalid owner id")
	ErrRequestBodyTooLarge = errors.New("upload: request body too large")
	ErrInvalidObjectKey    = errors.New("upload: invalid object key")
	ErrUploadNotFound      = errors.New("upload: upload not recorded")
	ErrRecordUpload        = errors.New("upload: record upload")
)
