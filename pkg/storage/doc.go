// Package storage provides remote content store adapters for asset uploads.
//
// Three drivers implement [asset.Store]: [S3] for AWS S3 and S3-compatible
// services (multipart streaming through the SDK upload manager), [MinIO] for
// MinIO deployments, and [Memory] for tests and local development.
//
// # Basic Usage
//
// Open a store from configuration. The returned store retries transient
// failures with bounded exponential backoff:
//
//	cfg := storage.Config{
//		Driver:    storage.DriverS3,
//		Bucket:    "media",
//		Region:    "eu-central-1",
//		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
//		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//		PublicURL: "https://cdn.example.com",
//	}
//
//	store, err := storage.Open(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	obj, err := store.Put(ctx, policy, asset.Upload{
//		Body:     file,
//		Filename: "logo.png",
//		MimeType: "image/png",
//		Size:     header.Size,
//	})
//
// # Object Layout
//
// Objects are written as <prefix>/<folder>/<key><ext> where key is a UUIDv7.
// The key returned in [asset.StoredObject] carries no extension, so Delete
// removes every object under <folder>/<key>. and treats "nothing found" as
// success.
//
// # Metadata
//
// The policy transform (e.g. "limit:500x500"), category, media kind and the
// sanitized original filename are stored as object metadata. Resizing is left
// to the image CDN in front of the bucket.
//
// # Errors
//
// Every adapter error is an [*asset.StoreError]. Network failures, timeouts,
// throttling and 5xx responses are marked transient. Use [WithRetry] to wrap
// any store with a retrying decorator:
//
//	store := storage.WithRetry(storage.NewMemory(""),
//		storage.WithMaxAttempts(5),
//		storage.WithPutTimeout(time.Minute),
//	)
package storage
