// Package cache provides byte caching for manifest lookups.
//
// The pipeline's descriptor store reads one manifest per dependency on every
// run; the cache lets repeated runs (watch mode, CLI inspection) skip the
// filesystem walk. Only raw manifest bytes are cached - descriptors
// themselves are run-scoped and never persisted.
//
// Backends: [FileCache] for local use, [RedisCache] for shared environments,
// [NullCache] to disable caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// TTLManifest is how long cached manifest documents stay valid.
// Manifests only change when dependencies are reinstalled, but a
// conservative TTL keeps stale fallback edits from lingering.
const TTLManifest = 1 * time.Hour

// ErrCacheMiss is returned by helpers that treat a miss as an error.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores opaque byte values with expiration.
type Cache interface {
	// Get retrieves a value. The boolean reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ManifestKeyOpts distinguishes manifest cache entries that would otherwise
// collide: the same dependency with different fallback directories or
// validation settings must cache separately.
type ManifestKeyOpts struct {
	FallbackDir string
	Validated   bool
}

// Keyer generates cache keys.
type Keyer interface {
	// ManifestKey generates the key for one dependency's manifest lookup.
	ManifestKey(dependency string, opts ManifestKeyOpts) string
}

// DefaultKeyer generates hashed, collision-resistant keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ManifestKey implements [Keyer].
func (k *DefaultKeyer) ManifestKey(dependency string, opts ManifestKeyOpts) string {
	return "manifest:" + digest(dependency, opts.FallbackDir, opts.Validated)
}

// digest hashes arbitrary key components into a 64-character hex string.
// Keys built from it stay fixed-width and never leak dependency names or
// project paths into filenames or Redis keys.
func digest(parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ScopedKeyer wraps a Keyer with a prefix so multiple projects can share one
// cache backend without key collisions.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ManifestKey generates a prefixed manifest key.
func (k *ScopedKeyer) ManifestKey(dependency string, opts ManifestKeyOpts) string {
	return k.prefix + k.inner.ManifestKey(dependency, opts)
}
