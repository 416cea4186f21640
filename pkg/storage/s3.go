package storage

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// maxDeleteBatch is the DeleteObjects request limit.
const maxDeleteBatch = 1000

// S3 implements asset.Store using S3-compatible object storage.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      Config
}

// NewS3 creates a new S3 store with the given configuration.
func NewS3(cfg Config) (*S3, error) {
	cfg.Driver = DriverS3
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)
			// Retries are owned by the WithRetry decorator.
			o.RetryMaxAttempts = 1
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	client := s3.New(s3.Options{}, opts...)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = cfg.PartSize
		u.Concurrency = cfg.Concurrency
	})

	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
	}, nil
}

// Put streams the upload to S3. Large payloads are sent as multipart uploads
// without buffering the whole body; a failed multipart upload is aborted.
func (s *S3) Put(ctx context.Context, p asset.Policy, u asset.Upload) (asset.StoredObject, error) {
	key, name := newObjectName(u)
	objectPath := s.cfg.objectPath(p.Folder, name)
	ct := contentType(u)
	body := &countingReader{r: u.Body}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(objectPath),
		Body:        body,
		ContentType: aws.String(ct),
		Metadata:    objectMetadata(p, u),
	}
	if s.cfg.ACL != "" {
		input.ACL = types.ObjectCannedACL(s.cfg.ACL)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return asset.StoredObject{}, storeError("put", err)
	}

	return asset.StoredObject{
		URL:         s.cfg.publicURL(objectPath),
		Key:         key,
		Category:    p.Category,
		ContentType: ct,
		Size:        body.n,
	}, nil
}

// Delete removes every object stored under the key in the policy folder.
// A missing key is not an error.
func (s *S3) Delete(ctx context.Context, p asset.Policy, key string) error {
	if !validKey(key) {
		return storeError("delete", fmt.Errorf("%w: %q", ErrInvalidKey, key))
	}

	exact := s.cfg.objectPath(p.Folder, key)
	paths := []string{exact}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(exact + "."),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return storeError("delete", err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); keyFromName(k) == key {
				paths = append(paths, k)
			}
		}
	}

	for batch := range slices.Chunk(paths, maxDeleteBatch) {
		ids := make([]types.ObjectIdentifier, 0, len(batch))
		for _, k := range batch {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.cfg.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return storeError("delete", err)
		}
		for _, e := range out.Errors {
			if code := aws.ToString(e.Code); code != "NoSuchKey" {
				return storeError("delete", fmt.Errorf("delete %s: %s: %s",
					aws.ToString(e.Key), code, aws.ToString(e.Message)))
			}
		}
	}

	return nil
}

// List calls fn for every object in the policy folder.
func (s *S3) List(ctx context.Context, p asset.Policy, fn func(asset.ListedObject) error) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.cfg.Bucket),
		Prefix:    aws.String(s.cfg.folderPrefix(p.Folder)),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return storeError("list", err)
		}
		for _, obj := range page.Contents {
			listed := asset.ListedObject{
				Key:          keyFromName(aws.ToString(obj.Key)),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			}
			if err := fn(listed); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	})
	return storeError("ping", err)
}

var (
	_ asset.Store  = (*S3)(nil)
	_ asset.Lister = (*S3)(nil)
	_ Pinger       = (*S3)(nil)
)
