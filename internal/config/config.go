package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds the application configuration
type Config struct {
	LogLevel string

	// Synthetic namespace, lower case
	Scheme string

	// Parse cache settings
	CacheMaxEntries    int
	CacheValidateMTime bool

	// Rendering
	SanitizeHTML bool

	// Prometheus endpoint of the serve command; empty disables it
	MetricsAddr string
}

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Scheme:             strings.ToLower(getEnv("EMLFS_SCHEME", "email")),
		CacheMaxEntries:    getEnvInt("EMLFS_CACHE_MAX_ENTRIES", 0),
		CacheValidateMTime: getEnvBool("EMLFS_CACHE_VALIDATE_MTIME", true),
		SanitizeHTML:       getEnvBool("EMLFS_SANITIZE_HTML", false),
		MetricsAddr:        getEnv("EMLFS_METRICS_ADDR", ""),
	}
	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !schemePattern.MatchString(c.Scheme) {
		return fmt.Errorf("EMLFS_SCHEME %q is not a valid URI scheme", c.Scheme)
	}

	if strings.EqualFold(c.Scheme, "file") {
		return fmt.Errorf("EMLFS_SCHEME must not be \"file\"")
	}

	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("EMLFS_CACHE_MAX_ENTRIES must be zero or positive")
	}

	return nil
}
