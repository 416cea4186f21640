package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/asset/assettest"
	"github.com/dmitrymomot/assetflow/pkg/ingest"
)

func newPipeline(t *testing.T) (*ingest.Pipeline, *assettest.Store) {
	t.Helper()
	store := assettest.NewStore()
	return ingest.New(asset.DefaultRegistry(), store), store
}

// validUpload returns an upload that passes validation for category c.
func validUpload(t *testing.T, c asset.Category, body string) asset.Upload {
	t.Helper()
	p := asset.DefaultRegistry().MustPolicy(c)
	return asset.Upload{
		Body:     strings.NewReader(body),
		Category: c,
		Filename: "file",
		MimeType: p.AllowedTypes[0],
		Size:     int64(len(body)),
	}
}

func TestIngest_Success(t *testing.T) {
	t.Parallel()

	pipeline, store := newPipeline(t)
	outcome := pipeline.Ingest(context.Background(), asset.Upload{
		Body:     strings.NewReader("png-bytes"),
		Category: asset.CategoryIcon,
		Filename: "logo.png",
		MimeType: "image/png",
		Size:     9,
	})

	require.True(t, outcome.OK(), outcome.String())
	obj, ok := outcome.Object()
	require.True(t, ok)
	assert.Equal(t, "https://store.test/services/obj001.png", obj.URL)
	assert.Equal(t, "obj001", obj.Key)
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, []assettest.Call{
		{Op: assettest.OpPut, Category: asset.CategoryIcon, Folder: "services", Key: "obj001"},
	}, store.Calls())
}

func TestIngest_EveryCategoryUsesItsFolder(t *testing.T) {
	t.Parallel()

	folders := map[asset.Category]string{
		asset.CategoryIcon:            "services",
		asset.CategoryUserDocument:    "user_documents",
		asset.CategoryCourseThumbnail: "course_thumbnails",
		asset.CategoryCourseVideo:     "course_videos",
	}

	for c, folder := range folders {
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()

			pipeline, store := newPipeline(t)
			outcome := pipeline.Ingest(context.Background(), validUpload(t, c, "data"))
			require.True(t, outcome.OK(), outcome.String())

			calls := store.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, folder, calls[0].Folder)
		})
	}
}

func TestIngest_InvalidMimeTypeNeverReachesStore(t *testing.T) {
	t.Parallel()

	for _, c := range asset.Categories() {
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()

			pipeline, store := newPipeline(t)
			u := validUpload(t, c, "data")
			u.MimeType = "application/x-msdownload"

			outcome := pipeline.Ingest(context.Background(), u)
			require.Equal(t, asset.KindInvalidMimeType, outcome.Kind())
			require.ErrorIs(t, outcome.Err(), asset.ErrInvalidMimeType)
			assert.Zero(t, len(store.Calls()))
		})
	}
}

func TestIngest_TooLargeNeverReachesStore(t *testing.T) {
	t.Parallel()

	for _, c := range asset.Categories() {
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()

			pipeline, store := newPipeline(t)
			p := asset.DefaultRegistry().MustPolicy(c)
			u := validUpload(t, c, "data")
			u.Size = p.MaxSize + 1

			outcome := pipeline.Ingest(context.Background(), u)
			require.Equal(t, asset.KindPayloadTooLarge, outcome.Kind())
			assert.Zero(t, len(store.Calls()))
		})
	}
}

func TestIngest_EmptyPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body io.Reader
		size int64
	}{
		{"declared zero size", strings.NewReader(""), 0},
		{"unknown size and empty stream", io.MultiReader(), asset.SizeUnknown},
		{"declared size but empty stream", strings.NewReader(""), 10},
		{"nil body", nil, asset.SizeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pipeline, store := newPipeline(t)
			outcome := pipeline.Ingest(context.Background(), asset.Upload{
				Body:     tt.body,
				Category: asset.CategoryUserDocument,
				MimeType: "application/pdf",
				Size:     tt.size,
			})
			require.Equal(t, asset.KindEmptyPayload, outcome.Kind())
			assert.Zero(t, len(store.Calls()))
		})
	}
}

func TestIngest_UnknownCategory(t *testing.T) {
	t.Parallel()

	pipeline, store := newPipeline(t)
	outcome := pipeline.Ingest(context.Background(), asset.Upload{
		Body:     strings.NewReader("x"),
		Category: "avatar",
		MimeType: "image/png",
		Size:     1,
	})
	require.Equal(t, asset.KindUnknownCategory, outcome.Kind())
	assert.Zero(t, len(store.Calls()))
}

func TestIngest_StreamExceedingLimit(t *testing.T) {
	t.Parallel()

	pipeline, store := newPipeline(t)
	p := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	// Unknown size: validation passes, the limit is enforced while streaming.
	body := io.MultiReader(bytes.NewReader(make([]byte, p.MaxSize+1)))
	outcome := pipeline.Ingest(context.Background(), asset.Upload{
		Body:     body,
		Category: asset.CategoryIcon,
		MimeType: "image/png",
		Size:     asset.SizeUnknown,
	})
	require.Equal(t, asset.KindPayloadTooLarge, outcome.Kind())
	assert.Equal(t, 1, store.Count(assettest.OpPut))
}

func TestIngest_StreamAtLimit(t *testing.T) {
	t.Parallel()

	pipeline, _ := newPipeline(t)
	p := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	outcome := pipeline.Ingest(context.Background(), asset.Upload{
		Body:     io.MultiReader(bytes.NewReader(make([]byte, p.MaxSize))),
		Category: asset.CategoryIcon,
		MimeType: "image/png",
		Size:     asset.SizeUnknown,
	})
	require.True(t, outcome.OK(), outcome.String())
	obj, _ := outcome.Object()
	assert.Equal(t, p.MaxSize, obj.Size)
}

func TestIngest_StoreFailure(t *testing.T) {
	t.Parallel()

	pipeline, store := newPipeline(t)
	storeErr := &asset.StoreError{Op: "put", Transient: true, Err: errors.New("503 service unavailable")}
	store.FailPut(storeErr)

	outcome := pipeline.Ingest(context.Background(), validUpload(t, asset.CategoryCourseVideo, "video"))
	require.Equal(t, asset.KindUploadFailed, outcome.Kind())
	require.ErrorIs(t, outcome.Err(), asset.ErrUploadFailed)
	require.ErrorIs(t, outcome.Err(), storeErr)
	assert.True(t, asset.IsTransient(outcome.Err()))
	assert.Contains(t, outcome.Err().Error(), "503 service unavailable")
	assert.Equal(t, 1, store.Count(assettest.OpPut))
}

func TestIngest_CancelledAfterPutDiscardsObject(t *testing.T) {
	t.Parallel()

	pipeline, store := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	store.OnPut(func(context.Context) { cancel() })

	outcome := pipeline.Ingest(ctx, validUpload(t, asset.CategoryIcon, "png"))
	require.Equal(t, asset.KindUploadFailed, outcome.Kind())
	require.ErrorIs(t, outcome.Err(), context.Canceled)
	assert.Equal(t, []string{"obj001"}, store.Deleted())
	assert.False(t, store.Has("obj001"))
}

func TestIngest_KeepsSeekableBodySeekable(t *testing.T) {
	t.Parallel()

	var seen io.Reader
	store := &bodyCapture{fn: func(r io.Reader) { seen = r }}
	pipeline := ingest.New(asset.DefaultRegistry(), store)

	outcome := pipeline.Ingest(context.Background(), validUpload(t, asset.CategoryIcon, "png"))
	require.True(t, outcome.OK(), outcome.String())

	_, ok := seen.(io.Seeker)
	assert.True(t, ok, "seekable bodies must stay seekable for retries")
}

func TestIngest_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := ingest.NewMetrics(reg)
	require.NoError(t, err)

	store := assettest.NewStore()
	pipeline := ingest.New(asset.DefaultRegistry(), store, ingest.WithMetrics(m))

	pipeline.Ingest(context.Background(), validUpload(t, asset.CategoryIcon, "png"))
	bad := validUpload(t, asset.CategoryIcon, "png")
	bad.MimeType = "text/plain"
	pipeline.Ingest(context.Background(), bad)

	expected := `
# HELP assetflow_ingest_outcomes_total Ingest outcomes by category and result (success or rejection kind).
# TYPE assetflow_ingest_outcomes_total counter
assetflow_ingest_outcomes_total{category="icon",result="invalid_mime_type"} 1
assetflow_ingest_outcomes_total{category="icon",result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "assetflow_ingest_outcomes_total"))
}

// bodyCapture hands the body it receives to fn.
type bodyCapture struct {
	fn func(io.Reader)
}

func (b *bodyCapture) Put(_ context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	b.fn(u.Body)
	_, _ = io.Copy(io.Discard, u.Body)
	return asset.StoredObject{URL: "https://store.test/" + p.Folder + "/k.png", Key: "k", Category: p.Category}, nil
}

func (b *bodyCapture) Delete(context.Context, asset.Policy, string) error {
	return nil
}
