//go:build integration

package storage_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/storage"
)

// Integration test configuration for an S3-compatible server.
// Start the test infrastructure with: docker compose up -d
const (
	testEndpoint  = "http://localhost:9000"
	testAccessKey = "admin"
	testSecretKey = "admin123"
	testBucket    = "uploads"
	testRegion    = "us-east-1"
)

func integrationConfig(driver storage.Driver) storage.Config {
	return storage.Config{
		Driver:    driver,
		Endpoint:  testEndpoint,
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		Bucket:    testBucket,
		Region:    testRegion,
		PathStyle: true,
		Prefix:    "integration",
	}
}

func integrationStores(t *testing.T) map[string]asset.Store {
	t.Helper()

	s3Store, err := storage.NewS3(integrationConfig(storage.DriverS3))
	require.NoError(t, err, "failed to create s3 store")

	minioStore, err := storage.NewMinIO(integrationConfig(storage.DriverMinIO))
	require.NoError(t, err, "failed to create minio store")
	require.NoError(t, minioStore.EnsureBucket(context.Background()))

	return map[string]asset.Store{
		"s3":    s3Store,
		"minio": minioStore,
	}
}

func TestStoreIntegration_PutListDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	icons := asset.DefaultRegistry().MustPolicy(asset.CategoryIcon)

	for name, store := range integrationStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data := []byte("\x89PNG\r\n\x1a\nintegration")
			obj, err := store.Put(ctx, icons, asset.Upload{
				Body:     bytes.NewReader(data),
				Filename: "logo.png",
				MimeType: "image/png",
				Size:     int64(len(data)),
			})
			require.NoError(t, err)
			require.NotEmpty(t, obj.Key)
			require.Equal(t, int64(len(data)), obj.Size)
			require.True(t, strings.HasSuffix(obj.URL, "/integration/services/"+obj.Key+".png"), obj.URL)

			found := false
			err = store.(asset.Lister).List(ctx, icons, func(o asset.ListedObject) error {
				if o.Key == obj.Key {
					found = true
				}
				return nil
			})
			require.NoError(t, err)
			require.True(t, found, "uploaded object not listed")

			require.NoError(t, store.Delete(ctx, icons, obj.Key))
			require.NoError(t, store.Delete(ctx, icons, obj.Key), "second delete must be a no-op")
		})
	}
}

func TestStoreIntegration_UnknownSizeStream(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	videos := asset.DefaultRegistry().MustPolicy(asset.CategoryCourseVideo)

	for name, store := range integrationStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// Larger than one part to force a multipart upload.
			payload := bytes.Repeat([]byte("v"), storage.DefaultPartSize+1024)
			obj, err := store.Put(ctx, videos, asset.Upload{
				Body:     io.MultiReader(bytes.NewReader(payload)),
				Filename: "lesson.mp4",
				MimeType: "video/mp4",
				Size:     asset.SizeUnknown,
			})
			require.NoError(t, err)
			require.Equal(t, int64(len(payload)), obj.Size)

			t.Cleanup(func() {
				_ = store.Delete(context.Background(), videos, obj.Key)
			})
		})
	}
}

func TestStoreIntegration_Ping(t *testing.T) {
	t.Parallel()

	for name, store := range integrationStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.NoError(t, store.(storage.Pinger).Ping(context.Background()))
		})
	}
}
