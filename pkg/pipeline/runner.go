package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ui5-community/plugin-loader/pkg/cache"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/observability"
	"github.com/ui5-community/plugin-loader/pkg/project"
)

// Runner encapsulates pipeline execution with manifest caching.
// Both CLI and dev server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete normalize → discover → resolve pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()
	result := &Result{
		RunID: uuid.NewString(),
	}
	logger := opts.Logger.With("run_id", result.RunID)

	// Stage 1: Normalize
	cfg, err := NormalizeConfig(opts.RawConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	result.Config = cfg

	proj := project.Open(opts.ProjectRoot, logger)
	dependencies := proj.Dependencies()
	result.Stats.DependencyCount = len(dependencies)
	observability.Pipeline().OnRunStart(ctx, result.RunID, len(dependencies))

	// Stage 2: Discover
	discoverStart := time.Now()
	store := extension.NewStore(proj.PackageDir, opts.Validator, logger)
	list := r.discover(ctx, dependencies, store, opts, result)
	result.Stats.Discovered = len(list)
	result.Stats.DiscoverTime = time.Since(discoverStart)
	observability.Pipeline().OnStageComplete(ctx, "discover", len(dependencies), len(list), result.Stats.DiscoverTime)

	logger.Info("discovered extensions",
		"dependencies", len(dependencies),
		"extensions", len(list),
		"cache_hits", result.CacheInfo.ManifestHits,
		"duration", result.Stats.DiscoverTime)

	// Stages 3-8: Resolve
	resolveStart := time.Now()
	list = r.resolve(ctx, list, cfg, logger, result)
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Stats.FinalCount = len(list)

	result.Descriptors = list
	result.Middleware, result.Tasks = splitByCategory(list)
	result.Stats.TotalTime = time.Since(start)

	logger.Info("resolved extensions",
		"middleware", len(result.Middleware),
		"tasks", len(result.Tasks),
		"duration", result.Stats.TotalTime)
	observability.Pipeline().OnRunComplete(ctx, result.RunID,
		len(result.Middleware), len(result.Tasks), result.Stats.TotalTime, nil)

	return result, nil
}

// resolve runs the pure stages 3-8 over the discovered list, recording
// per-stage hook events and result stats along the way.
func (r *Runner) resolve(ctx context.Context, list []extension.Descriptor, cfg Config, logger *log.Logger, result *Result) []extension.Descriptor {
	stage := func(name string, fn func([]extension.Descriptor) []extension.Descriptor) {
		in := len(list)
		stageStart := time.Now()
		list = fn(list)
		observability.Pipeline().OnStageComplete(ctx, name, in, len(list), time.Since(stageStart))
	}

	stage("disable", func(l []extension.Descriptor) []extension.Descriptor {
		out := ApplyDisable(l, cfg, logger)
		result.Stats.Disabled = len(l) - len(out)
		return out
	})
	stage("defaults", FillDefaults)
	stage("overrides", func(l []extension.Descriptor) []extension.Descriptor {
		return ApplyOverrides(l, cfg)
	})
	stage("validate", func(l []extension.Descriptor) []extension.Descriptor {
		result.Warnings = append(result.Warnings, ValidateReferences(l, logger)...)
		return l
	})
	stage("dedupe", func(l []extension.Descriptor) []extension.Descriptor {
		out := Dedupe(l, logger)
		result.Stats.Duplicates = len(l) - len(out)
		return out
	})
	stage("sort", Sort)

	return list
}

// cachedManifest is the serialized form of one manifest lookup result.
type cachedManifest struct {
	Document   *extension.Document  `json:"document"`
	Provenance extension.Provenance `json:"provenance"`
}

// discover runs stage 2 with a read-through manifest cache. Manifest misses
// (dependencies without a manifest) are never cached, so a freshly installed
// manifest is picked up on the next run without a refresh.
func (r *Runner) discover(ctx context.Context, dependencies []string, store *extension.Store, opts Options, result *Result) []extension.Descriptor {
	keyOpts := cache.ManifestKeyOpts{
		FallbackDir: opts.FallbackDir,
		Validated:   opts.Validator != nil,
	}

	var out []extension.Descriptor
	for _, dep := range dependencies {
		key := r.Keyer.ManifestKey(dep, keyOpts)

		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				var cached cachedManifest
				if err := json.Unmarshal(data, &cached); err == nil && cached.Document != nil {
					result.CacheInfo.ManifestHits++
					observability.Cache().OnCacheHit(ctx, "manifest")
					out = append(out, cached.Document.Descriptors(dep, cached.Provenance)...)
					continue
				}
			}
		}
		result.CacheInfo.ManifestMisses++
		observability.Cache().OnCacheMiss(ctx, "manifest")

		doc, provenance, ok := store.Load(dep, opts.FallbackDir)
		if !ok {
			continue
		}
		if data, err := json.Marshal(cachedManifest{Document: doc, Provenance: provenance}); err == nil {
			_ = r.Cache.Set(ctx, key, data, cache.TTLManifest)
			observability.Cache().OnCacheSet(ctx, "manifest", len(data))
		}
		out = append(out, doc.Descriptors(dep, provenance)...)
	}
	return out
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
