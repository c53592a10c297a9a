// Package cache provides the cache-aside store for computed query results.
// Entries are derived data, never authoritative, and always safe to discard;
// every operation is designed so a cache failure degrades to a durable-store
// read instead of failing the caller's request.
package cache

import (
	"context"
	"time"
)

// Store is a get/set-with-TTL store supporting pattern-scoped deletion.
//
// DeleteMatching takes a pattern with a trailing wildcard (prefix match).
// It is eventually consistent with respect to Set calls racing under the
// same prefix: a Set started before the delete and finishing after it may
// survive until its TTL expires. Short TTLs bound that staleness window.
type Store interface {
	// Get returns the cached bytes for key; ok is false on miss
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key until ttl elapses
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeleteMatching removes every entry whose key matches the pattern
	DeleteMatching(ctx context.Context, pattern string) error

	Close() error
}
