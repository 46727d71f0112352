// Package loader turns resolved middleware descriptors into live dispatch
// handlers.
//
// Handler acquisition is strategy-based: a loader consults its resolvers in
// order until one produces a factory for the descriptor. Unresolvable or
// failing descriptors are skipped with a logged reason, never aborting the
// run - a single broken extension must not block the rest.
package loader

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/errors"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/observability"
)

// Skip records one descriptor the loader could not mount.
type Skip struct {
	Name   string
	Reason error
}

// Result is the outcome of loading a descriptor list.
type Result struct {
	// Loaded holds the mounted handlers in descriptor order.
	Loaded []dispatch.Named

	// Skipped lists the descriptors that produced no handler.
	Skipped []Skip
}

// Loader mounts middleware descriptors using an ordered resolver strategy.
type Loader struct {
	resolvers []Resolver
	host      any
	logger    *log.Logger
}

// New creates a loader. Resolvers are consulted in the given order; a nil
// logger discards all output.
func New(resolvers []Resolver, host any, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Loader{resolvers: resolvers, host: host, logger: logger}
}

// Load mounts every middleware descriptor in order. Task descriptors and
// descriptors no resolver answers for are skipped with a reason; factory
// failures likewise. The returned Loaded slice preserves the input order of
// the descriptors that mounted successfully.
func (l *Loader) Load(ctx context.Context, descriptors []extension.Descriptor) Result {
	var result Result

	for _, d := range descriptors {
		named, err := l.load(ctx, d)
		if err != nil {
			l.logger.Warn("skipping extension", "name", d.Name, "reason", err)
			observability.Loader().OnSkipped(ctx, d.Name, err)
			result.Skipped = append(result.Skipped, Skip{Name: d.Name, Reason: err})
			continue
		}
		result.Loaded = append(result.Loaded, named)
	}
	return result
}

func (l *Loader) load(ctx context.Context, d extension.Descriptor) (dispatch.Named, error) {
	if d.Category != extension.CategoryMiddleware {
		return dispatch.Named{}, errors.New(errors.ErrCodeUnsupported, "category %q has no request handler", d.Category)
	}

	start := time.Now()
	for _, r := range l.resolvers {
		factory, mc, ok := r.Resolve(d)
		if !ok {
			continue
		}
		mc.Host = l.host
		if mc.Logger == nil {
			mc.Logger = l.logger.With("extension", d.Name)
		}

		handler, err := factory(ctx, mc)
		if err != nil {
			return dispatch.Named{}, errors.Wrap(errors.ErrCodeHandlerFailed, err, "instantiate handler for %q", d.Name)
		}

		l.logger.Debug("loaded extension",
			"name", d.Name,
			"package", d.SourceDependency,
			"entry", mc.EntryPoint,
			"duration", time.Since(start))
		observability.Loader().OnLoaded(ctx, d.Name, d.SourceDependency, time.Since(start))
		return dispatch.Named{Name: d.Name, Handler: handler}, nil
	}

	return dispatch.Named{}, errors.New(errors.ErrCodeEntryPointNotFound, "no resolver for extension %q", d.Name)
}
