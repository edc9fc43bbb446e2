package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragprompt/internal/logging"
	"ragprompt/internal/tui"
)

// NewTUICmd creates the tui command.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui <file>",
		Short: "Interactive document generation for one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// log records would corrupt the screen
			svc, err := newService(logging.Discard())
			if err != nil {
				return err
			}
			m := tui.New(cmd.Context(), svc, args[0], appConfig.Document.DefaultType)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
