package templating

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config contains the configuration options for the templating engine.
type Config struct {
	// CacheMaxSize is the maximum number of compiled templates to cache.
	// 0 disables caching.
	CacheMaxSize int
	// CacheTTL is the time-to-live for cached templates. 0 means no
	// expiration.
	CacheTTL time.Duration
	// MaxRenderDepth is the maximum depth of nested partial expansion.
	// It bounds cyclic partial references, which would otherwise recurse
	// until the stack is exhausted.
	MaxRenderDepth int
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string
	// StrictMode upgrades lint warnings (unknown helpers, missing
	// partials) to errors.
	StrictMode bool
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		CacheTTL:       0,
		MaxRenderDepth: 100,
		LogLevel:       "info",
		StrictMode:     false,
	}
}

// ConfigFromEnvironment creates a configuration from KIXX_* environment
// variables, falling back to defaults for unset or malformed values.
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	if val := os.Getenv("KIXX_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	if val := os.Getenv("KIXX_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	if val := os.Getenv("KIXX_MAX_RENDER_DEPTH"); val != "" {
		if depth, err := strconv.Atoi(val); err == nil {
			config.MaxRenderDepth = depth
		}
	}

	if val := os.Getenv("KIXX_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv("KIXX_STRICT_MODE"); val != "" {
		config.StrictMode = parseBool(val)
	}

	return config
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	if c.MaxRenderDepth <= 0 {
		return errors.New("max render depth must be positive")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("invalid log level: " + c.LogLevel)
	}

	return nil
}

// GetGlobalConfig returns a copy of the global configuration.
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig replaces the global configuration.
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update the logger outside the lock to avoid deadlock.
	updateLoggerFromConfig()
}

// parseBool parses a boolean value from a string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
