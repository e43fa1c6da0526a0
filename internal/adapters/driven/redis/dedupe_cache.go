package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DedupeCache = (*DedupeCache)(nil)

const (
	dedupePrefix = "harvest:dedupe:"

	// DefaultDedupeTTL bounds cache growth. The item store remains the
	// source of truth, so expired entries only cost an extra lookup.
	DefaultDedupeTTL = 7 * 24 * time.Hour
)

// DedupeCache implements driven.DedupeCache using per-digest Redis
// keys with a TTL. Hits are advisory; the caller confirms against the
// item store before treating a candidate as a duplicate.
type DedupeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupeCache creates a Redis-backed dedupe cache.
// A ttl of zero falls back to DefaultDedupeTTL.
func NewDedupeCache(client *redis.Client, ttl time.Duration) *DedupeCache {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &DedupeCache{client: client, ttl: ttl}
}

// Add records a content hash
func (c *DedupeCache) Add(ctx context.Context, digest string) error {
	if digest == "" {
		return nil
	}
	if err := c.client.Set(ctx, dedupePrefix+digest, 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache digest: %w", err)
	}
	return nil
}

// Contains reports whether a content hash has been seen
func (c *DedupeCache) Contains(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	n, err := c.client.Exists(ctx, dedupePrefix+digest).Result()
	if err != nil {
		return false, fmt.Errorf("check digest: %w", err)
	}
	return n > 0, nil
}

// Ping checks if the Redis backend is healthy.
func (c *DedupeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client
func (c *DedupeCache) Close() error {
	return c.client.Close()
}
