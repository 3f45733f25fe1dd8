// Package observability provides hooks for logging and metrics.
//
// Libraries emit events through package-level hook registries; the binary
// decides what to do with them. The CLI installs hooks that write debug
// logs, tests install recorders, and everything else gets no-ops.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetHTTPHooks(&logHTTPHooks{logger})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Trace().OnFetch(ctx, "anyio", 0)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Trace Hooks
// =============================================================================

// TraceHooks receives events from the dependency trace walker.
type TraceHooks interface {
	// OnFetch records that metadata for pkg is about to be loaded at depth.
	OnFetch(ctx context.Context, pkg string, depth int)

	// OnDecision records one trace decision.
	OnDecision(ctx context.Context, parent, dep, outcome string, depth int)

	// OnWalkComplete records the end of a top-level walk.
	OnWalkComplete(ctx context.Context, pkg string, decisions int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTraceHooks is a no-op implementation of TraceHooks.
type NoopTraceHooks struct{}

func (NoopTraceHooks) OnFetch(context.Context, string, int)                              {}
func (NoopTraceHooks) OnDecision(context.Context, string, string, string, int)           {}
func (NoopTraceHooks) OnWalkComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	traceHooks TraceHooks = NoopTraceHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetTraceHooks registers custom trace hooks.
// This should be called once at application startup before any walk starts.
func SetTraceHooks(h TraceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		traceHooks = h
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

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Trace returns the registered trace hooks.
func Trace() TraceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return traceHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	traceHooks = NoopTraceHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
