package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ui5-community/plugin-loader/pkg/ordergraph"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var flags resolveFlags
	var format string
	var output string
	var detailed bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the order-hint graph of the resolved extensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "dot" && format != "svg" {
				return fmt.Errorf("invalid format: %q (must be dot or svg)", format)
			}

			spin := newSpinnerWithContext(cmd.Context(), "Resolving extensions")
			spin.Start()

			result, err := c.resolveProject(cmd.Context(), flags)
			if err != nil {
				spin.StopWithError("Resolution failed")
				return err
			}

			dot := ordergraph.ToDOT(result.Descriptors, ordergraph.Options{Detailed: detailed})

			switch format {
			case "dot":
				spin.Stop()
				if output == "" {
					fmt.Print(dot)
					return nil
				}
				if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
					return err
				}
			case "svg":
				spin.SetMessage("Rendering order graph")
				svg, err := ordergraph.RenderSVG(dot)
				if err != nil {
					spin.StopWithError("Graph rendering failed")
					return err
				}
				spin.Stop()
				if output == "" {
					output = "order-graph.svg"
				}
				if err := os.WriteFile(output, svg, 0o644); err != nil {
					return err
				}
			}

			if output != "" {
				printSuccess("Wrote order graph")
				printFile(output)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout for dot)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include mount paths and sources in labels")
	return cmd
}
