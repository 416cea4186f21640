package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/assetflow/pkg/asset"
)

// Driver selects the store implementation.
type Driver string

// Supported drivers.
const (
	DriverS3     Driver = "s3"
	DriverMinIO  Driver = "minio"
	DriverMemory Driver = "memory"
)

// ACL is a canned access control list applied to uploaded objects.
type ACL string

const (
	// ACLPrivate makes the object accessible only to the bucket owner.
	ACLPrivate ACL = "private"

	// ACLPublicRead makes the object publicly readable.
	ACLPublicRead ACL = "public-read"
)

// Config holds remote store configuration.
type Config struct {
	// Driver is the store implementation (default: s3).
	Driver Driver `env:"STORAGE_DRIVER" envDefault:"s3"`

	// Bucket is the bucket name (required for s3 and minio).
	Bucket string `env:"STORAGE_BUCKET"`

	// AccessKey and SecretKey are static credentials (required for s3 and minio).
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`

	// Endpoint is the custom endpoint URL (optional for s3, required for minio).
	Endpoint string `env:"STORAGE_ENDPOINT"`

	// Region is the bucket region (default: us-east-1).
	Region string `env:"STORAGE_REGION" envDefault:"us-east-1"`

	// PublicURL is the CDN or public URL prefix used to build object URLs.
	PublicURL string `env:"STORAGE_PUBLIC_URL"`

	// Prefix is prepended to every policy folder.
	Prefix string `env:"STORAGE_PREFIX"`

	// ACL is applied to uploaded objects when set.
	ACL ACL `env:"STORAGE_ACL"`

	// PathStyle enables path-style addressing (required for most S3-compatible services).
	PathStyle bool `env:"STORAGE_PATH_STYLE"`

	// UseSSL is used by the minio driver when Endpoint has no scheme.
	UseSSL bool `env:"STORAGE_USE_SSL" envDefault:"true"`

	// PartSize and Concurrency tune multipart uploads.
	PartSize    int64 `env:"STORAGE_PART_SIZE" envDefault:"8388608"`
	Concurrency int   `env:"STORAGE_UPLOAD_CONCURRENCY" envDefault:"4"`

	Retry RetryConfig `envPrefix:"STORAGE_RETRY_"`
}

// RetryConfig bounds the retry decorator.
type RetryConfig struct {
	// MaxAttempts includes the first call. 1 disables retries.
	MaxAttempts uint64 `env:"MAX_ATTEMPTS" envDefault:"3"`

	BaseDelay time.Duration `env:"BASE_DELAY" envDefault:"200ms"`
	MaxDelay  time.Duration `env:"MAX_DELAY" envDefault:"5s"`

	// Per-call timeouts. A call that hits its timeout counts as transient.
	PutTimeout    time.Duration `env:"PUT_TIMEOUT" envDefault:"10m"`
	DeleteTimeout time.Duration `env:"DELETE_TIMEOUT" envDefault:"30s"`
}

// Default configuration values.
const (
	DefaultRegion        = "us-east-1"
	DefaultPartSize      = 8 << 20 // 8MB
	DefaultConcurrency   = 4
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 200 * time.Millisecond
	DefaultMaxDelay      = 5 * time.Second
	DefaultPutTimeout    = 10 * time.Minute
	DefaultDeleteTimeout = 30 * time.Second
	DefaultMemoryBaseURL = "http://localhost/storage"
)

// Pinger is implemented by stores that can report their own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// applyDefaults fills in default values for empty config fields.
func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverS3
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.PartSize <= 0 {
		c.PartSize = DefaultPartSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	c.Retry.applyDefaults()
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.PutTimeout <= 0 {
		c.PutTimeout = DefaultPutTimeout
	}
	if c.DeleteTimeout <= 0 {
		c.DeleteTimeout = DefaultDeleteTimeout
	}
}

// validate checks that required configuration fields are set.
func (c *Config) validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverS3, DriverMinIO:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: credentials are required", ErrInvalidConfig)
	}
	if c.Driver == DriverMinIO && c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required for minio", ErrInvalidConfig)
	}
	switch c.ACL {
	case "", ACLPrivate, ACLPublicRead:
	default:
		return fmt.Errorf("%w: unsupported acl %q", ErrInvalidConfig, c.ACL)
	}
	return nil
}

// Open creates the configured store wrapped with the retry decorator.
// Extra options are applied after the ones derived from cfg.Retry.
func Open(cfg Config, opts ...RetryOption) (*Retrying, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		store asset.Store
		err   error
	)
	switch cfg.Driver {
	case DriverS3:
		store, err = NewS3(cfg)
	case DriverMinIO:
		store, err = NewMinIO(cfg)
	case DriverMemory:
		store = NewMemory(cfg.PublicURL)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(store, append([]RetryOption{WithRetryConfig(cfg.Retry)}, opts...)...), nil
}

// objectPath builds the full store path for a file in a policy folder.
func (c *Config) objectPath(folder, name string) string {
	p := asset.ObjectPath(sanitizeFolder(folder), name)
	if prefix := sanitizeFolder(c.Prefix); prefix != "" {
		p = prefix + "/" + p
	}
	return p
}

// folderPrefix is the listing prefix of a policy folder, with a trailing slash.
func (c *Config) folderPrefix(folder string) string {
	return c.objectPath(folder, "")
}

// endpointURL returns Endpoint with a scheme.
func (c *Config) endpointURL() string {
	endpoint := strings.TrimSuffix(c.Endpoint, "/")
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	if c.UseSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// publicURL generates the public URL for an object path.
func (c *Config) publicURL(objectPath string) string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/") + "/" + objectPath
	}

	if endpoint := c.endpointURL(); endpoint != "" {
		if c.PathStyle || c.Driver == DriverMinIO {
			return fmt.Sprintf("%s/%s/%s", endpoint, c.Bucket, objectPath)
		}
		return fmt.Sprintf("%s/%s", endpoint, objectPath)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.Bucket, c.Region, objectPath)
}
