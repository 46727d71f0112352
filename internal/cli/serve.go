package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ui5-community/plugin-loader/pkg/devserver"
	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/host"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags resolveFlags
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the composed middleware chain for local development",
		Long: `Serve resolves the project's extensions, mounts every middleware a
resolver can load, and serves the composed chain over HTTP. Resolution
details are exposed under /_loader/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := projectConfig(flags)
			if err != nil {
				return err
			}

			cacheBackend, err := newCache(flags.noCache)
			if err != nil {
				return err
			}
			defer cacheBackend.Close()

			srv, err := devserver.New(cmd.Context(), host.Options{
				ProjectRoot: flags.project,
				FallbackDir: flags.fallback,
				Config:      raw,
				Cache:       cacheBackend,
				Refresh:     flags.refresh,
				Validator:   extension.NewStructuralValidator(),
				Logger:      c.Logger,
			})
			if err != nil {
				return err
			}

			att := srv.Attachment()
			printSuccess("Resolved %d middleware, %d tasks", len(att.Middleware), len(att.Tasks))
			for _, skip := range att.Skipped {
				printWarning("not mounted: %s (%v)", skip.Name, skip.Reason)
			}
			printInfo("Serving on http://%s", addr)
			printNextStep("Resolution status", fmt.Sprintf("curl http://%s/_loader/status", addr))

			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}
