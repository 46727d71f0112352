package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// browseCommand creates the browse command: an interactive view of the
// resolved extension plan.
func (c *CLI) browseCommand() *cobra.Command {
	var flags resolveFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the resolved extensions interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.resolveProject(cmd.Context(), flags)
			if err != nil {
				return err
			}

			model := NewExtensionListModel(result.Descriptors)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
