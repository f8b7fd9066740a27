// Package observability provides hooks for metrics, tracing, and logging.
//
// Solvers and the pipeline emit events through hook interfaces; a backend
// is registered once at startup. The default hooks do nothing, so library
// users pay nothing unless they opt in.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    prom := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	    observability.SetSolveHooks(prom)
//	    observability.SetCacheHooks(prom)
//	    // ... run application
//	}
//
// The pipeline calls hooks to emit events:
//
//	observability.Solve().OnSolveStart(ctx, "exact", n)
//	// ... solve ...
//	observability.Solve().OnSolveComplete(ctx, "exact", n, result, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Solve Hooks
// =============================================================================

// SolveResult summarizes a finished solve for hooks.
type SolveResult struct {
	Cost     float64
	Attempts int
	Cached   bool
}

// SolveHooks receives events from the solvers.
type SolveHooks interface {
	OnSolveStart(ctx context.Context, mode string, tracks int)
	// OnAttempt is called after every annealing attempt.
	OnAttempt(ctx context.Context, worker int, cost float64, improved bool)
	OnSolveComplete(ctx context.Context, mode string, tracks int, res SolveResult, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSolveHooks is a no-op implementation of SolveHooks.
type NoopSolveHooks struct{}

func (NoopSolveHooks) OnSolveStart(context.Context, string, int)         {}
func (NoopSolveHooks) OnAttempt(context.Context, int, float64, bool)     {}
func (NoopSolveHooks) OnSolveComplete(context.Context, string, int, SolveResult, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	solveHooks SolveHooks = NoopSolveHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetSolveHooks registers custom solve hooks.
// This should be called once at application startup before any solves.
func SetSolveHooks(h SolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		solveHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Solve returns the registered solve hooks.
func Solve() SolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return solveHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	solveHooks = NoopSolveHooks{}
	cacheHooks = NoopCacheHooks{}
}
