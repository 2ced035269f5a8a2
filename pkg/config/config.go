// Package config loads LIMS client settings from a YAML file and LIMS_*
// environment variables, and builds a ready client from them.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/cache"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/client"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/logging"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete client and proxy configuration.
type Config struct {
	Host     string `yaml:"host" env:"LIMS_HOST" validate:"omitempty,url"`
	Username string `yaml:"username" env:"LIMS_USERNAME" validate:"required_without=CredentialsSecret"`
	Password string `yaml:"password" env:"LIMS_PASSWORD"`

	RequestTimeout time.Duration `yaml:"request_timeout" env:"LIMS_REQUEST_TIMEOUT" validate:"gt=0"`
	MaxConcurrency int           `yaml:"max_concurrency" env:"LIMS_MAX_CONCURRENCY" validate:"min=1,max=64"`
	MaxPages       int           `yaml:"max_pages" env:"LIMS_MAX_PAGES" validate:"min=0"`

	// CredentialsSecret names an AWS Secrets Manager secret holding
	// {"host", "username", "password"}.
	CredentialsSecret string `yaml:"credentials_secret" env:"LIMS_CREDENTIALS_SECRET"`
	AWSRegion         string `yaml:"aws_region" env:"LIMS_AWS_REGION"`

	// ListenAddr is used by lims-proxy.
	ListenAddr string `yaml:"listen_addr" env:"LIMS_LISTEN_ADDR" validate:"required"`

	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// CacheConfig selects the GET response cache.
type CacheConfig struct {
	Backend   string `yaml:"backend" env:"LIMS_CACHE_BACKEND" validate:"oneof=none memory redis"`
	RedisAddr string `yaml:"redis_addr" env:"LIMS_REDIS_ADDR" validate:"required_if=Backend redis"`
	RedisDB   int    `yaml:"redis_db" env:"LIMS_REDIS_DB" validate:"min=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LIMS_LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	Pretty bool   `yaml:"pretty" env:"LIMS_LOG_PRETTY"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		RequestTimeout: 60 * time.Second,
		MaxConcurrency: 8,
		ListenAddr:     ":8080",
		Cache: CacheConfig{
			Backend: CacheNone,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then LIMS_* environment variables, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize makes Host end with a slash.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/") {
		c.Host += "/"
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Host may come from the credentials secret.
	if c.Host == "" && c.CredentialsSecret == "" {
		return fmt.Errorf("%w: host is required without credentials_secret", ErrInvalidConfig)
	}
	return nil
}

// LoggingSetup returns the pkg/logging settings.
func (c *Config) LoggingSetup() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(c.Logging.Level)
	lc.Pretty = c.Logging.Pretty
	return lc
}

// ClientConfig converts c to a client.Config using store as the cache.
func (c *Config) ClientConfig(store cache.Store) client.Config {
	cc := client.DefaultConfig(c.Host, c.Username, c.Password)
	cc.RequestTimeout = c.RequestTimeout
	cc.MaxConcurrency = c.MaxConcurrency
	cc.MaxPages = c.MaxPages
	cc.Cache = store
	return cc
}

// NewCacheStore opens the configured cache. The returned close function is
// never nil. Redis stores get a fresh namespace so that every client starts
// with an empty cache.
func (c *Config) NewCacheStore(ctx context.Context) (cache.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Cache.Backend {
	case "", CacheNone:
		return nil, noop, nil
	case CacheMemory:
		return cache.NewMemoryStore(), noop, nil
	case CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: c.Cache.RedisAddr,
			DB:   c.Cache.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("connect redis %s: %w", c.Cache.RedisAddr, err)
		}
		return cache.NewRedisStore(rdb, uuid.NewString()), rdb.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
}

// NewClient resolves credentials, opens the cache and creates the client.
// The returned close function releases both.
func NewClient(ctx context.Context, cfg *Config) (*client.Client, func() error, error) {
	if err := ResolveCredentials(ctx, cfg); err != nil {
		return nil, nil, err
	}

	store, closeStore, err := cfg.NewCacheStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	c, err := client.New(cfg.ClientConfig(store))
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	return c, func() error {
		c.Close()
		return closeStore()
	}, nil
}
