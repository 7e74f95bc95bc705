// Package storage provides the key-value backends behind the token cache.
// Both in-memory and Redis-backed stores are available; the Redis store lets
// several broker instances share one token cache.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned by operations on a closed store
var ErrStoreClosed = errors.New("store closed")

// Store is a flat string key-value store.
// A missing key reads as "" with a nil error. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the value for key, or "" when unset
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Close releases any resources held by the store
	Close() error

	// Name returns the store type name
	Name() string
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds token store configuration
type Config struct {
	// Type is the store type: "memory" or "redis"
	Type string
	// Redis configuration (used when Type is "redis")
	Redis RedisConfig
}

// RedisConfig holds Redis-specific store configuration
type RedisConfig struct {
	// Addresses is a list of Redis addresses
	Addresses []string
	// Password is the Redis password
	Password string
	// DB is the Redis database number
	DB int
	// KeyPrefix namespaces broker keys inside Redis
	KeyPrefix string
	// MasterName is the Sentinel master name (for Sentinel mode)
	MasterName string
	// Timeout bounds every Redis round trip
	Timeout time.Duration
}

// DefaultConfig returns default store configuration
func DefaultConfig() Config {
	return Config{
		Type: "memory",
		Redis: RedisConfig{
			KeyPrefix: "tokenbroker:",
			Timeout:   5 * time.Second,
		},
	}
}
