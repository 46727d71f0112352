package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ui5-community/plugin-loader/pkg/extension"
	"github.com/ui5-community/plugin-loader/pkg/pipeline"
)

// resolveFlags are the options shared by resolve, browse, and graph.
type resolveFlags struct {
	project  string
	fallback string
	disable  []string
	refresh  bool
	noCache  bool
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.project, "project", "p", ".", "project root directory")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "fallback manifest directory")
	cmd.Flags().StringSliceVar(&f.disable, "disable", nil, "extension names to disable (repeatable)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass the manifest cache")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching entirely")
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var flags resolveFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the project's extensions into an ordered plan",
		Long: `Resolve scans the project's dependencies for extension manifests and
prints the ordered middleware and task plan the host would receive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.resolveProject(cmd.Context(), flags)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			c.printResult(result)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// projectConfig loads the rc-file configuration and merges the --disable
// flag values into it.
func projectConfig(flags resolveFlags) (map[string]any, error) {
	raw, err := loadRC(flags.project)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rcFilename, err)
	}
	if len(flags.disable) > 0 {
		if raw == nil {
			raw = map[string]any{}
		}
		disabled, _ := raw["disable"].([]string)
		raw["disable"] = append(disabled, flags.disable...)
	}
	return raw, nil
}

// resolveProject runs the pipeline with rc-file and flag configuration.
func (c *CLI) resolveProject(ctx context.Context, flags resolveFlags) (*pipeline.Result, error) {
	raw, err := projectConfig(flags)
	if err != nil {
		return nil, err
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	result, err := runner.Execute(ctx, pipeline.Options{
		ProjectRoot: flags.project,
		FallbackDir: flags.fallback,
		RawConfig:   raw,
		Refresh:     flags.refresh,
		Logger:      logger,
		Validator:   extension.NewStructuralValidator(),
	})
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Resolved %d extensions", result.Stats.FinalCount))
	return result, nil
}

// printResult renders the resolved plan for terminal output.
func (c *CLI) printResult(result *pipeline.Result) {
	fmt.Println(StyleTitle.Render("Resolved extensions"))
	printStats(len(result.Middleware), len(result.Tasks),
		result.Stats.Disabled+result.Stats.Duplicates,
		result.CacheInfo.ManifestHits > 0 && result.CacheInfo.ManifestMisses == 0)

	if len(result.Middleware) > 0 {
		printInfo("Middleware")
		for i, d := range result.Middleware {
			printDescriptor(i+1, d)
		}
	}
	if len(result.Tasks) > 0 {
		printInfo("Tasks")
		for i, d := range result.Tasks {
			printDescriptor(i+1, d)
		}
	}

	for _, w := range result.Warnings {
		printWarning("%s", w)
	}
	if len(result.Middleware)+len(result.Tasks) == 0 {
		printDetail("No extensions found - dependencies carry no manifests")
	}
	printNextStep("Inspect the order graph", "pluginloader graph --format svg")
}

func printDescriptor(pos int, d extension.Descriptor) {
	line := fmt.Sprintf("%2d. %s", pos, StyleValue.Render(d.Name))
	if hint := d.OrderHint; hint.After != "" {
		line += StyleDim.Render(fmt.Sprintf("  after %s", hint.After))
	} else if hint.Before != "" {
		line += StyleDim.Render(fmt.Sprintf("  before %s", hint.Before))
	}
	if d.MountPath != "" {
		line += StyleDim.Render("  @ ") + StyleHighlight.Render(d.MountPath)
	}
	line += StyleDim.Render("  (" + d.SourceDependency + ")")
	fmt.Println("  " + line)
}
