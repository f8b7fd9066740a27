// Package cache stores solver results keyed by a hash of their inputs.
//
// Only deterministic results belong here: an exact solution depends solely
// on the tracks and weights, so repeated requests for the same set can be
// answered without rerunning the dynamic program. Annealing results depend
// on the clock and are never cached.
//
// Backends:
//   - FileCache for the CLI (one JSON file per entry under a cache directory)
//   - RedisCache for the server
//   - NullCache when caching is disabled
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TTLSolution is the default lifetime of a cached solution.
const TTLSolution = 30 * 24 * time.Hour
