package concurrency

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// ConfigSource indicates where the configuration came from
type ConfigSource string

const (
	ConfigSourceEnvVar     ConfigSource = "environment_variable"
	ConfigSourceAutoDetect ConfigSource = "auto_detect"
)

// Config sizes the chain engine and the calls it makes against the store.
type Config struct {
	// Workers is the number of concurrent per-artifact runs.
	Workers int
	// StoreConcurrency bounds concurrent single-artifact store calls
	// (LoadOne, Save) made by units while a chain runs.
	StoreConcurrency int
	Source           ConfigSource
	IsKubernetes     bool
	EffectiveCPUs    int
}

// LoadConfig loads concurrency configuration with priority: env vars > auto-detection
func LoadConfig() *Config {
	config := &Config{}

	config.IsKubernetes = isKubernetes()

	// Respects cgroup limits once InitializeForKubernetes has run
	config.EffectiveCPUs = runtime.GOMAXPROCS(0)

	if workers := getEnvInt("MODELCHAIN_WORKERS", 0); workers > 0 {
		config.Workers = workers
		config.Source = ConfigSourceEnvVar
	} else if multiplier := getEnvInt("MODELCHAIN_CONCURRENCY_MULTIPLIER", 0); multiplier > 0 {
		config.Workers = config.EffectiveCPUs * multiplier
		config.Source = ConfigSourceEnvVar
	} else {
		config.Workers = getDefaultWorkers(config.IsKubernetes, config.EffectiveCPUs)
		config.Source = ConfigSourceAutoDetect
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	if n := getEnvInt("MODELCHAIN_STORE_CONCURRENCY", 0); n > 0 {
		config.StoreConcurrency = n
	} else {
		config.StoreConcurrency = config.Workers
	}

	return config
}

// isKubernetes detects if the application is running in Kubernetes
func isKubernetes() bool {
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// getDefaultWorkers keeps pods conservative; parsing is CPU bound, so more
// workers than CPUs only helps when units wait on the store or cache.
func getDefaultWorkers(isK8s bool, cpus int) int {
	if isK8s {
		return max(cpus, 2)
	}
	return max(cpus*2, 4)
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// String returns a formatted string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, StoreConcurrency: %d, IsK8s: %t, CPUs: %d, Source: %s}",
		c.Workers,
		c.StoreConcurrency,
		c.IsKubernetes,
		c.EffectiveCPUs,
		c.Source,
	)
}
