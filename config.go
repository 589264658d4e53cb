package rsessions

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default and limit values for validation and housekeeping.
const (
	DefaultTTL = 7200
	MaxTTL     = 2592000 // 30 days

	minWipeInterval  = 10 * time.Second
	defaultWipeBatch = 500
	defaultCacheSize = 10000
)

// Config holds the engine configuration. All fields can be populated from
// the environment via [LoadConfig]; the zero value plus normalization is a
// working local default.
type Config struct {
	// RedisURL is the connection string, e.g. "redis://:pass@host:6379/0".
	// Ignored when a client is injected via WithClient.
	RedisURL string `env:"RSESS_REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`

	// Namespace prefixes every Redis key and the invalidation channel.
	Namespace string `env:"RSESS_NAMESPACE" envDefault:"rs"`

	// WipeInterval is the expiry sweep period. 0 disables the sweeper;
	// anything below 10s is raised to 10s.
	WipeInterval time.Duration `env:"RSESS_WIPE_INTERVAL" envDefault:"600s"`

	// WipeBatch caps how many overdue entries one sweep page processes.
	WipeBatch int `env:"RSESS_WIPE_BATCH" envDefault:"500"`

	// CacheTime enables the read-through session cache when positive. It is
	// the per-entry cache lifetime, independent of session ttl.
	CacheTime time.Duration `env:"RSESS_CACHE_TIME" envDefault:"0"`

	// CacheSize bounds the number of cached sessions.
	CacheSize int `env:"RSESS_CACHE_SIZE" envDefault:"10000"`

	RetryAttempts  int           `env:"RSESS_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"RSESS_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"RSESS_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// LoadConfig reads the configuration from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(errors.New("parse config"), err)
	}
	return cfg, nil
}

// normalize applies defaults and floors. The returned namespace always
// carries a trailing ":".
func (c Config) normalize() Config {
	if c.Namespace == "" {
		c.Namespace = "rs"
	}
	c.Namespace = strings.TrimSuffix(c.Namespace, ":") + ":"
	if c.WipeInterval > 0 && c.WipeInterval < minWipeInterval {
		c.WipeInterval = minWipeInterval
	}
	if c.WipeBatch <= 0 {
		c.WipeBatch = defaultWipeBatch
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	return c
}
