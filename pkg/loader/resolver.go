package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/extension"
)

// MountContext carries everything a factory needs to instantiate a handler
// for one descriptor.
type MountContext struct {
	// Descriptor is the resolved extension being mounted.
	Descriptor extension.Descriptor

	// EntryPoint is the handler source file located by an entry-point
	// resolver, empty when the factory came from a registry.
	EntryPoint string

	// Host is an opaque host-provided value passed through to factories.
	Host any

	Logger *log.Logger
}

// Factory instantiates the handler for one mounted extension.
type Factory func(ctx context.Context, mc MountContext) (dispatch.Handler, error)

// Resolver maps a descriptor to a handler factory. Resolvers are consulted
// in order; the first one that answers wins.
type Resolver interface {
	Resolve(d extension.Descriptor) (Factory, MountContext, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(d extension.Descriptor) (Factory, MountContext, bool)

// Resolve implements [Resolver].
func (f ResolverFunc) Resolve(d extension.Descriptor) (Factory, MountContext, bool) {
	return f(d)
}

// =============================================================================
// Registry Resolver
// =============================================================================

// Registry resolves descriptors against factories registered in-process.
// This is the primary strategy for Go hosts: extensions are compiled in and
// registered under their extension name.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to an extension name, replacing any previous
// binding for that name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Resolve implements [Resolver].
func (r *Registry) Resolve(d extension.Descriptor) (Factory, MountContext, bool) {
	f, ok := r.factories[d.Name]
	if !ok {
		return nil, MountContext{}, false
	}
	return f, MountContext{Descriptor: d}, true
}

// =============================================================================
// Entry-Point Resolver
// =============================================================================

// packageAliases maps extension names whose handler lives in a package with
// an unrelated name, where neither suffix stripping nor the source
// dependency recovers the package. Checked before the generic suffix rules.
var packageAliases = map[string]string{
	"livereload":     "ui5-middleware-livereload",
	"cachebuster":    "ui5-middleware-cachebuster",
	"proxy":          "ui5-middleware-simpleproxy",
	"stringreplacer": "ui5-middleware-stringreplacer",
}

// middlewareEntryPoints are the files probed, in order, inside a candidate
// package directory when mounting middleware.
var middlewareEntryPoints = []string{
	"lib/middleware.js",
	"dist/middleware.js",
	"middleware.js",
	"index.js",
}

// taskEntryPoints are the files probed for task extensions.
var taskEntryPoints = []string{
	"lib/task.js",
	"dist/task.js",
	"task.js",
	"index.js",
}

// PackageCandidates derives the package names that may contain the handler
// for an extension name: an explicit alias first, then the name with its
// category suffix stripped, then the name itself. The source dependency is
// always the final candidate, since the manifest that declared the
// extension came from there.
func PackageCandidates(d extension.Descriptor) []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	if alias, ok := packageAliases[d.Name]; ok {
		add(alias)
	}
	add(strings.TrimSuffix(strings.TrimSuffix(d.Name, "-middleware"), "-task"))
	add(d.Name)
	add(d.SourceDependency)
	return out
}

// EntryProbe locates a handler's entry-point file on disk and delegates
// instantiation to a host-provided bridge. The probe itself never executes
// anything: without a bridge every descriptor is unresolvable.
type EntryProbe struct {
	// Locate maps a package name to its installed directory.
	Locate func(pkg string) (string, bool)

	// Bridge instantiates a handler from a located entry point, typically
	// by handing it to an embedded script runtime or a subprocess host.
	Bridge Factory
}

// Resolve implements [Resolver]: derive candidate packages, probe each for
// a category-appropriate entry point, and hand the first hit to the bridge.
func (p *EntryProbe) Resolve(d extension.Descriptor) (Factory, MountContext, bool) {
	if p.Locate == nil || p.Bridge == nil {
		return nil, MountContext{}, false
	}

	entryPoints := middlewareEntryPoints
	if d.Category == extension.CategoryTask {
		entryPoints = taskEntryPoints
	}

	for _, pkg := range PackageCandidates(d) {
		dir, ok := p.Locate(pkg)
		if !ok {
			continue
		}
		for _, entry := range entryPoints {
			path := filepath.Join(dir, filepath.FromSlash(entry))
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return p.Bridge, MountContext{Descriptor: d, EntryPoint: path}, true
			}
		}
	}
	return nil, MountContext{}, false
}
