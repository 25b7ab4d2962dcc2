package ports

import (
	"context"
	"time"
)

// CacheStore is the gateway's key-value cache.
// Implementations never fail towards callers: a backend problem reads as a
// miss and a write that could not be stored is dropped.
type CacheStore interface {
	// Get returns the stored bytes for key. ok=false if absent or expired.
	// The slice belongs to the caller; mutating it never alters the entry.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set overwrites key unconditionally with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate removes the given keys, or every entry when none are given.
	Invalidate(ctx context.Context, keys ...string)
	// Stats is read-only introspection.
	Stats(ctx context.Context) CacheStats
}

// CacheStats describes the current cache contents.
type CacheStats struct {
	Size              int      `json:"size"`
	Keys              []string `json:"keys"`
	ApproxMemoryBytes int64    `json:"approxMemoryBytes"`
}
