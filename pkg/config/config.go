// Package config loads modelchain settings from MODELCHAIN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wehubfusion/modelchain/pkg/concurrency"
	mcerrors "github.com/wehubfusion/modelchain/pkg/errors"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreBlob   = "blob"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds everything needed to open a data source and run chains.
type Config struct {
	Workers          int
	QueueSize        int
	StoreConcurrency int

	StoreBackend         string
	BlobConnectionString string
	BlobContainer        string
	ArtifactPrefix       string
	ResultPrefix         string

	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CachePrefix   string
	CacheTTL      time.Duration

	NATSURL     string
	NATSSubject string

	SentryDSN   string
	Environment string

	TracingEndpoint    string
	TracingSampleRatio float64

	LogLevel       string
	LogDevelopment bool
}

// Load reads the environment. Worker sizing falls back to concurrency.LoadConfig.
func Load() *Config {
	cc := concurrency.LoadConfig()
	return &Config{
		Workers:          cc.Workers,
		QueueSize:        getEnvInt("MODELCHAIN_QUEUE_SIZE", 64),
		StoreConcurrency: cc.StoreConcurrency,

		StoreBackend:         strings.ToLower(getEnv("MODELCHAIN_STORE", StoreMemory)),
		BlobConnectionString: getEnv("MODELCHAIN_BLOB_CONNECTION_STRING", ""),
		BlobContainer:        getEnv("MODELCHAIN_BLOB_CONTAINER", "modelchain"),
		ArtifactPrefix:       getEnv("MODELCHAIN_ARTIFACT_PREFIX", "artifacts/"),
		ResultPrefix:         getEnv("MODELCHAIN_RESULT_PREFIX", "results/"),

		CacheBackend:  strings.ToLower(getEnv("MODELCHAIN_CACHE", CacheMemory)),
		RedisAddr:     getEnv("MODELCHAIN_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("MODELCHAIN_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MODELCHAIN_REDIS_DB", 0),
		CachePrefix:   getEnv("MODELCHAIN_CACHE_PREFIX", "modelchain:"),
		CacheTTL:      getEnvDuration("MODELCHAIN_CACHE_TTL", 24*time.Hour),

		NATSURL:     getEnv("MODELCHAIN_NATS_URL", ""),
		NATSSubject: getEnv("MODELCHAIN_NATS_SUBJECT", "modelchain.runs"),

		SentryDSN:   getEnv("MODELCHAIN_SENTRY_DSN", ""),
		Environment: getEnv("MODELCHAIN_ENVIRONMENT", "development"),

		TracingEndpoint:    getEnv("MODELCHAIN_OTLP_ENDPOINT", ""),
		TracingSampleRatio: getEnvFloat("MODELCHAIN_TRACE_SAMPLE_RATIO", 1.0),

		LogLevel:       strings.ToLower(getEnv("MODELCHAIN_LOG_LEVEL", "info")),
		LogDevelopment: getEnvBool("MODELCHAIN_LOG_DEVELOPMENT", false),
	}
}

// Validate reports the first inconsistent setting as a configuration error.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return mcerrors.Configuration("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return mcerrors.Configuration("queue size must be at least 1, got %d", c.QueueSize)
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StoreBlob:
		if c.BlobConnectionString == "" {
			return mcerrors.Configuration("blob store needs MODELCHAIN_BLOB_CONNECTION_STRING")
		}
		if c.BlobContainer == "" {
			return mcerrors.Configuration("blob store needs a container name")
		}
	default:
		return mcerrors.Configuration("unknown store backend %q", c.StoreBackend)
	}
	switch c.CacheBackend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			return mcerrors.Configuration("redis cache needs MODELCHAIN_REDIS_ADDR")
		}
	default:
		return mcerrors.Configuration("unknown cache backend %q", c.CacheBackend)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return mcerrors.Configuration("trace sample ratio must be within [0,1], got %g", c.TracingSampleRatio)
	}
	return nil
}

// String renders the configuration without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, QueueSize: %d, Store: %s, Cache: %s, NATS: %t, Sentry: %t, Tracing: %t, LogLevel: %s}",
		c.Workers,
		c.QueueSize,
		c.StoreBackend,
		c.CacheBackend,
		c.NATSURL != "",
		c.SentryDSN != "",
		c.TracingEndpoint != "",
		c.LogLevel,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
