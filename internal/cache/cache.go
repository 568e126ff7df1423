package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores serialized values with a TTL. A zero TTL means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// NewsKey is the cache key for a category list. Order matters because it
// decides tie-breaking among equal timestamps.
func NewsKey(categories []string) string {
	return "news:" + strings.Join(categories, ",")
}

// SummaryKey is the cache key for a summary of content with the given hash.
func SummaryKey(provider, contentHash string) string {
	return "summary:" + provider + ":" + contentHash
}
