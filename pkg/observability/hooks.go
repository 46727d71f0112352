// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Hosts can register hooks
// at startup to receive events about pipeline runs, handler loading, and
// cache operations.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageComplete(ctx, "dedupe", in, out, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the resolution pipeline.
type PipelineHooks interface {
	// OnRunStart fires when a pipeline run begins.
	OnRunStart(ctx context.Context, runID string, dependencyCount int)

	// OnStageComplete fires after each resolution stage, reporting the
	// descriptor counts going in and coming out.
	OnStageComplete(ctx context.Context, stage string, in, out int, duration time.Duration)

	// OnRunComplete fires when a pipeline run finishes.
	OnRunComplete(ctx context.Context, runID string, middleware, tasks int, duration time.Duration, err error)
}

// LoaderHooks receives events from handler loading.
type LoaderHooks interface {
	// OnLoaded records a successfully loaded handler.
	OnLoaded(ctx context.Context, name, pkg string, duration time.Duration)

	// OnSkipped records a descriptor skipped during loading.
	OnSkipped(ctx context.Context, name string, reason error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRunStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, int, int, time.Duration) {}
func (NoopPipelineHooks) OnRunComplete(context.Context, string, int, int, time.Duration, error) {
}

// NoopLoaderHooks is a no-op implementation of LoaderHooks.
type NoopLoaderHooks struct{}

func (NoopLoaderHooks) OnLoaded(context.Context, string, string, time.Duration) {}
func (NoopLoaderHooks) OnSkipped(context.Context, string, error)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	loaderHooks   LoaderHooks   = NoopLoaderHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// Call once at application startup before any pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetLoaderHooks registers custom loader hooks.
// Call once at application startup before any handler loading.
func SetLoaderHooks(h LoaderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		loaderHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// Call once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Loader returns the registered loader hooks.
func Loader() LoaderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return loaderHooks
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
	pipelineHooks = NoopPipelineHooks{}
	loaderHooks = NoopLoaderHooks{}
	cacheHooks = NoopCacheHooks{}
}
