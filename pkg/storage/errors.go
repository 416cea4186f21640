package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// Sentinel errors for storage operations.
var (
	// Configuration errors.
	ErrInvalidConfig = errors.New("storage: invalid configuration")
	ErrUnknownDriver = errors.New("storage: unknown driver")

	// Operation errors.
	ErrInvalidKey     = errors.New("storage: invalid object key")
	ErrNotFound       = errors.New("storage: object not found")
	ErrAccessDenied   = errors.New("storage: access denied")
	ErrBucketNotFound = errors.New("storage: bucket not found")
	ErrCallTimeout    = errors.New("storage: call timed out")

	ErrListNotSupported = errors.New("storage: store does not support listing")
)

// transientCodes are provider error codes worth retrying.
var transientCodes = map[string]bool{
	"InternalError":        true,
	"RequestLimitExceeded": true,
	"RequestTimeout":       true,
	"ServiceUnavailable":   true,
	"SlowDown":             true,
	"Throttling":           true,
	"ThrottlingException":  true,
}

// storeError converts an adapter error into *asset.StoreError.
// Already classified errors are returned unchanged.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *asset.StoreError
	if errors.As(err, &serr) {
		return err
	}
	return &asset.StoreError{
		Op:        op,
		Transient: isTransient(err),
		Err:       normalizeError(err),
	}
}

// normalizeError maps provider errors onto storage sentinels.
// Note: uses %v for the provider error so callers match sentinels with
// errors.Is instead of depending on SDK types.
func normalizeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %v", ErrBucketNotFound, err)
		case "AccessDenied":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	return err
}

// isTransient reports whether retrying err may succeed.
// Cancellation by the caller is never transient.
func isTransient(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrCallTimeout),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && retryableStatus(status.HTTPStatusCode()) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && transientCodes[apiErr.ErrorCode()] {
		return true
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		if retryableStatus(minioErr.StatusCode) || transientCodes[minioErr.Code] {
			return true
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// ignoreNotFound drops not-found errors; deletes are idempotent.
func ignoreNotFound(err error) error {
	if err == nil || errors.Is(normalizeError(err), ErrNotFound) {
		return nil
	}
	return err
}
