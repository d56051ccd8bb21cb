package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: miss")

// Cache stores JSON-serialized analysis results keyed by content hash.
type Cache interface {
	Set(ctx context.Context, key string, value any) error

	Get(ctx context.Context, key string, dest any) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	GetStats(ctx context.Context) (*CacheStats, error)

	Close() error
}

type CacheStats struct {
	Connected bool   `json:"connected"`
	Info      string `json:"info"`
}

// GenerateCacheKey derives a stable key from its components.
func GenerateCacheKey(components ...string) string {
	h := sha256.New()
	for _, component := range components {
		h.Write([]byte(component))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
