package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// MinIO implements asset.Store on top of the MinIO client.
type MinIO struct {
	client *minio.Client
	cfg    Config
}

// NewMinIO creates a new MinIO store with the given configuration.
// Endpoint may be given as host:port or as a URL; a URL scheme overrides UseSSL.
func NewMinIO(cfg Config) (*MinIO, error) {
	cfg.Driver = DriverMinIO
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	host, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %v", ErrInvalidConfig, err)
	}

	return &MinIO{client: client, cfg: cfg}, nil
}

// splitEndpoint turns an endpoint into the host:port form minio.New expects.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("%w: endpoint %q", ErrInvalidConfig, endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return storeError("ensure_bucket", err)
	}
	if exists {
		return nil
	}
	err = m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{Region: m.cfg.Region})
	return storeError("ensure_bucket", err)
}

// Put streams the upload to MinIO. An unknown size (-1) makes the client
// switch to multipart upload with the configured part size.
func (m *MinIO) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	key, name := newObjectName(u)
	objectPath := m.cfg.objectPath(p.Folder, name)
	ct := contentType(u)

	meta := objectMetadata(p, u)
	if m.cfg.ACL != "" {
		meta["x-amz-acl"] = string(m.cfg.ACL)
	}

	size := u.Size
	if size < 0 {
		size = -1
	}

	info, err := m.client.PutObject(ctx, m.cfg.Bucket, objectPath, u.Body, size, minio.PutObjectOptions{
		ContentType:  ct,
		UserMetadata: meta,
		PartSize:     uint64(m.cfg.PartSize),
		NumThreads:   uint(m.cfg.Concurrency),
	})
	if err != nil {
		return asset.StoredObject{}, storeError("put", err)
	}

	return asset.StoredObject{
		URL:         m.cfg.publicURL(objectPath),
		Key:         key,
		Category:    p.Category,
		ContentType: ct,
		Size:        info.Size,
	}, nil
}

// Delete removes every object stored under the key in the policy folder.
// A missing key is not an error.
func (m *MinIO) Delete(ctx context.Context, p asset.Policy, key string) error {
	if !validKey(key) {
		return storeError("delete", fmt.Errorf("%w: %q", ErrInvalidKey, key))
	}

	exact := m.cfg.objectPath(p.Folder, key)
	paths := []string{exact}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(listCtx, m.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    exact + ".",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return storeError("delete", obj.Err)
		}
		if keyFromName(obj.Key) == key {
			paths = append(paths, obj.Key)
		}
	}

	for _, objectPath := range paths {
		err := m.client.RemoveObject(ctx, m.cfg.Bucket, objectPath, minio.RemoveObjectOptions{})
		if err = ignoreNotFound(err); err != nil {
			return storeError("delete", fmt.Errorf("remove object %q: %w", objectPath, err))
		}
	}

	return nil
}

// List calls fn for every object in the policy folder.
func (m *MinIO) List(ctx context.Context, p asset.Policy, fn func(asset.ListedObject) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(ctx, m.cfg.Bucket, minio.ListObjectsOptions{
		Prefix: m.cfg.folderPrefix(p.Folder),
	}) {
		if obj.Err != nil {
			return storeError("list", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		listed := asset.ListedObject{
			Key:          keyFromName(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		}
		if err := fn(listed); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the bucket exists.
func (m *MinIO) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return storeError("ping", err)
	}
	if !exists {
		return storeError("ping", ErrBucketNotFound)
	}
	return nil
}

var (
	_ asset.Store  = (*MinIO)(nil)
	_ asset.Lister = (*MinIO)(nil)
	_ Pinger       = (*MinIO)(nil)
)
