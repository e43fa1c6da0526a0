package redis

import (
	"context"
	"testing"
	"time"
)

func TestDedupeCache_AddAndContains(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewDedupeCache(client, 0)
	ctx := context.Background()

	digest := "a3f5c9e1b2d4f6a8c0e2b4d6f8a0c2e4b6d8f0a2c4e6b8d0f2a4c6e8b0d2f4a6"

	seen, err := cache.Contains(ctx, digest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected digest to be unseen")
	}

	if err := cache.Add(ctx, digest); err != nil {
		t.Fatalf("unexpected error on add: %v", err)
	}

	seen, err = cache.Contains(ctx, digest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Error("expected digest to be seen after add")
	}
}

func TestDedupeCache_EmptyDigest(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewDedupeCache(client, 0)
	ctx := context.Background()

	// Empty digests are ignored rather than cached
	if err := cache.Add(ctx, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen, err := cache.Contains(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Error("expected empty digest to never be seen")
	}
}

func TestDedupeCache_DefaultTTL(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewDedupeCache(client, 0)
	if cache.ttl != DefaultDedupeTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultDedupeTTL, cache.ttl)
	}

	cache = NewDedupeCache(client, time.Hour)
	if cache.ttl != time.Hour {
		t.Errorf("expected TTL %v, got %v", time.Hour, cache.ttl)
	}
}

func TestDedupeCache_Ping(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewDedupeCache(client, 0)

	if err := cache.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
