// Package host is the embedding facade: one call resolves a project's
// extensions, mounts the middleware handlers, and hands back a composed
// request chain plus the task registrations for the host's build scheduler.
package host

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ui5-community/plugin-loader/pkg/cache"
	"github.com/ui5-community/plugin-loader/pkg/dispatch"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/loader"
	"github.com/ui5-community/plugin-loader/pkg/pipeline"
)

// TaskRegistration is one resolved task extension handed to the host's
// build scheduler.
type TaskRegistration struct {
	Name          string
	OrderHint     extension.OrderHint
	Configuration map[string]any
	Source        string
}

// TaskRegistrar receives each resolved task in final order. Returning an
// error logs the task as failed and continues with the next one.
type TaskRegistrar func(reg TaskRegistration) error

// Options configures one Attach call.
type Options struct {
	// ProjectRoot is the directory containing the project descriptor.
	ProjectRoot string

	// FallbackDir overrides the default fallback manifest directory.
	FallbackDir string

	// Config is the raw host configuration, normalized during resolution.
	Config map[string]any

	// Resolvers mount middleware handlers. Without any, every middleware
	// descriptor is skipped (resolution output stays fully populated).
	Resolvers []loader.Resolver

	// RegisterTask receives resolved tasks. Nil skips task registration.
	RegisterTask TaskRegistrar

	// HostContext is passed through to handler factories.
	HostContext any

	// Cache backs manifest lookups across runs. Nil disables caching.
	Cache cache.Cache

	// Refresh bypasses cached manifests for this attachment.
	Refresh bool

	// Validator checks manifests before use. Nil accepts any document.
	Validator extension.Validator

	Logger *log.Logger
}

// Attachment is the result of mounting a project's extensions.
type Attachment struct {
	// RunID identifies the underlying resolution run.
	RunID string

	// Middleware and Tasks are the resolved descriptors in final order.
	Middleware []extension.Descriptor
	Tasks      []extension.Descriptor

	// Handler is the composed middleware chain, ready to mount. The
	// terminal continuation responds 404.
	Handler http.Handler

	// Loaded names the middleware that actually mounted; Skipped records
	// the rest with reasons.
	Loaded  []dispatch.Named
	Skipped []loader.Skip

	// Warnings are the advisory messages from resolution.
	Warnings []string

	// Stats carries the resolution timings and counts.
	Stats pipeline.Stats
}

// Attach resolves, loads, and composes a project's extensions.
func Attach(ctx context.Context, opts Options) (*Attachment, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	runner := pipeline.NewRunner(opts.Cache, nil, logger)
	result, err := runner.Execute(ctx, pipeline.Options{
		ProjectRoot: opts.ProjectRoot,
		FallbackDir: opts.FallbackDir,
		RawConfig:   opts.Config,
		Refresh:     opts.Refresh,
		Logger:      logger,
		Validator:   opts.Validator,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve extensions: %w", err)
	}

	l := loader.New(opts.Resolvers, opts.HostContext, logger)
	loaded := l.Load(ctx, result.Middleware)

	if opts.RegisterTask != nil {
		for _, d := range result.Tasks {
			reg := TaskRegistration{
				Name:          d.Name,
				OrderHint:     d.OrderHint,
				Configuration: d.Configuration,
				Source:        d.SourceDependency,
			}
			if err := opts.RegisterTask(reg); err != nil {
				logger.Warn("task registration failed", "name", d.Name, "err", err)
			}
		}
	}

	return &Attachment{
		RunID:      result.RunID,
		Middleware: result.Middleware,
		Tasks:      result.Tasks,
		Handler:    dispatch.Chain(loaded.Loaded, nil, nil, logger),
		Loaded:     loaded.Loaded,
		Skipped:    loaded.Skipped,
		Warnings:   result.Warnings,
		Stats:      result.Stats,
	}, nil
}
