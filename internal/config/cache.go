package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig defines settings for the reservation read cache.  When
// Enabled is false or no Redis client is configured, reads always go to the
// database.  TTL bounds how long an entry may outlive a missed
// invalidation.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     parseDur(getenv("CACHE_TTL", "1h")),
		Prefix:  getenv("CACHE_PREFIX", "tables"),
	}
}

// Helper functions reused from redis.go, queue.go and ratelimit.go
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}
