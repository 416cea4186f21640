// Package config loads the assetd configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/assetflow/internal/server"
	"github.com/dmitrymomot/assetflow/pkg/asset"
	"github.com/dmitrymomot/assetflow/pkg/db"
	"github.com/dmitrymomot/assetflow/pkg/logger"
	"github.com/dmitrymomot/assetflow/pkg/redis"
	"github.com/dmitrymomot/assetflow/pkg/storage"
)

// Superseded object deleters.
const (
	DeleterInline = "inline"
	DeleterAsync  = "async"
	DeleterJob    = "job"
)

// Idempotency cache backends.
const (
	CacheOff    = "off"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete assetd configuration.
type Config struct {
	Sweep     SweepConfig
	Log       logger.Config
	Redis     redis.Config
	Storage   storage.Config
	Upload    UploadConfig
	Lifecycle LifecycleConfig
	DB        db.Config
	Jobs      JobsConfig
	Server    server.Config

	// PoliciesFile overrides the built-in category policies (YAML).
	PoliciesFile string `env:"ASSET_POLICIES_FILE"`

	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// UploadConfig configures the HTTP upload API.
type UploadConfig struct {
	IdempotencyCache  string        `env:"UPLOAD_IDEMPOTENCY_CACHE" envDefault:"memory"`
	CORSOrigins       []string      `env:"UPLOAD_CORS_ORIGINS" envDefault:"*" envSeparator:","`
	IdempotencyTTL    time.Duration `env:"UPLOAD_IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyMax    int           `env:"UPLOAD_IDEMPOTENCY_MAX_ENTRIES" envDefault:"10000"`
	MultipartOverhead int64         `env:"UPLOAD_MULTIPART_OVERHEAD" envDefault:"65536"`
}

// LifecycleConfig selects how superseded objects are deleted.
type LifecycleConfig struct {
	Deleter          string        `env:"LIFECYCLE_DELETER" envDefault:"async"`
	DeleteTimeout    time.Duration `env:"LIFECYCLE_DELETE_TIMEOUT" envDefault:"30s"`
	AsyncConcurrency int           `env:"LIFECYCLE_ASYNC_CONCURRENCY" envDefault:"8"`
}

// JobsConfig configures the river job queue. Without Process the instance
// only enqueues; another instance runs the workers.
type JobsConfig struct {
	TaskTimeout time.Duration `env:"JOBS_TASK_TIMEOUT" envDefault:"10m"`
	MaxWorkers  int           `env:"JOBS_MAX_WORKERS" envDefault:"20"`
	Process     bool          `env:"JOBS_PROCESS" envDefault:"true"`
}

// SweepConfig configures the scheduled reconciliation sweep.
type SweepConfig struct {
	Schedule    string        `env:"SWEEP_SCHEDULE" envDefault:"@hourly"`
	GracePeriod time.Duration `env:"SWEEP_GRACE_PERIOD" envDefault:"24h"`
	Concurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"4"`
	BatchSize   int           `env:"SWEEP_BATCH_SIZE" envDefault:"500"`
	Enabled     bool          `env:"SWEEP_ENABLED" envDefault:"true"`
	DryRun      bool          `env:"SWEEP_DRY_RUN"`
	RunOnStart  bool          `env:"SWEEP_RUN_ON_START"`
}

// Load reads a .env file from the working directory when present, then
// parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations the individual fields cannot express.
func (c *Config) Validate() error {
	switch c.Lifecycle.Deleter {
	case DeleterInline, DeleterAsync:
	case DeleterJob:
		if !c.DB.Enabled() {
			return fmt.Errorf("%w: LIFECYCLE_DELETER=job requires DATABASE_CONN_URL", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown LIFECYCLE_DELETER %q", ErrInvalid, c.Lifecycle.Deleter)
	}

	switch c.Upload.IdempotencyCache {
	case CacheOff, CacheMemory:
	case CacheRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%w: UPLOAD_IDEMPOTENCY_CACHE=redis requires REDIS_URL", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown UPLOAD_IDEMPOTENCY_CACHE %q", ErrInvalid, c.Upload.IdempotencyCache)
	}
	return nil
}

// Registry returns the policy registry: the built-in table, with the
// overrides from PoliciesFile applied when it is set.
func (c *Config) Registry() (*asset.Registry, error) {
	if c.PoliciesFile == "" {
		return asset.DefaultRegistry(), nil
	}

	f, err := os.Open(c.PoliciesFile)
	if err != nil {
		return nil, fmt.Errorf("config: open policy file: %w", err)
	}
	defer f.Close()

	return asset.LoadPolicies(f, asset.DefaultRegistry())
}
