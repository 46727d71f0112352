// Package pipeline implements the extension resolution pipeline.
//
// This package turns a project's declared dependencies into an ordered list
// of extension descriptors. The same logic backs the CLI, the dev server,
// and programmatic hosts, so behavior stays identical across entry points.
//
// # Architecture
//
// Resolution runs eight stages:
//
//  1. Normalize: coerce the raw host configuration into a typed Config
//  2. Discover: flatten each dependency's manifest into descriptors
//  3. Disable: drop descriptors named in the disable list
//  4. Defaults: anchor unhinted descriptors after the host's builtins
//  5. Overrides: apply per-extension order, mount, and config patches
//  6. Validate: warn about order hints pointing at unknown targets
//  7. Dedupe: keep the first descriptor per name, drop the rest
//  8. Sort: order by name-pattern bucket, then lexicographically
//
// Stages 2-8 are pure functions over descriptor slices. The Runner wires
// them together with manifest caching and observability hooks.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    ProjectRoot: ".",
//	    RawConfig:   hostConfig,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range result.Middleware {
//	    fmt.Println(d.Name)
//	}
package pipeline

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/extension"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, Server, and Hosts
// =============================================================================

const (
	// DefaultFallbackDirName is the directory, relative to the project root,
	// probed for manifests of dependencies that ship none of their own.
	DefaultFallbackDirName = ".pluginloader"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one resolution run.
// This struct supports JSON serialization for server requests.
type Options struct {
	// ProjectRoot is the directory containing the project descriptor.
	ProjectRoot string `json:"project_root"`

	// FallbackDir overrides the default fallback manifest directory.
	// Relative paths are resolved against ProjectRoot.
	FallbackDir string `json:"fallback_dir,omitempty"`

	// RawConfig is the host configuration exactly as the host supplied it.
	// It is normalized in stage 1; malformed shapes fail the run.
	RawConfig map[string]any `json:"config,omitempty"`

	// Refresh bypasses the manifest cache and re-reads every manifest
	// from disk.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger    *log.Logger         `json:"-"`
	Validator extension.Validator `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a resolution run.
type Result struct {
	// RunID uniquely identifies this run in logs and hooks.
	RunID string

	// Config is the normalized host configuration.
	Config Config

	// Descriptors is the full resolved list in final order, both
	// categories interleaved.
	Descriptors []extension.Descriptor

	// Middleware holds the resolved middleware descriptors in final order.
	Middleware []extension.Descriptor

	// Tasks holds the resolved task descriptors in final order.
	Tasks []extension.Descriptor

	// Warnings collects the advisory messages produced during resolution,
	// currently dangling order-hint references.
	Warnings []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks manifest cache effectiveness.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	DependencyCount int
	Discovered      int
	Disabled        int
	Duplicates      int
	FinalCount      int
	DiscoverTime    time.Duration
	ResolveTime     time.Duration
	TotalTime       time.Duration
}

// CacheInfo tracks manifest cache hits and misses for one run.
type CacheInfo struct {
	ManifestHits   int
	ManifestMisses int
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ProjectRoot == "" {
		return fmt.Errorf("project root is required")
	}
	if o.FallbackDir == "" {
		o.FallbackDir = filepath.Join(o.ProjectRoot, DefaultFallbackDirName)
	} else if !filepath.IsAbs(o.FallbackDir) {
		o.FallbackDir = filepath.Join(o.ProjectRoot, o.FallbackDir)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// splitByCategory partitions a resolved list into middleware and tasks,
// preserving order within each category.
func splitByCategory(list []extension.Descriptor) (middleware, tasks []extension.Descriptor) {
	for _, d := range list {
		switch d.Category {
		case extension.CategoryMiddleware:
			middleware = append(middleware, d)
		case extension.CategoryTask:
			tasks = append(tasks, d)
		}
	}
	return middleware, tasks
}
