// Package cli implements the pixelboard command line: the board server and a
// handful of commands that read or write the configured backend directly.
package cli

import (
	"github.com/spf13/cobra"
)

// New returns the root pixelboard command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pixelboard",
		Short: "A shared pixel board for rectangular messages.",
		Long: `A shared pixel board for rectangular messages.

Storage is selected through the environment (BACKEND, DATA_DIR, SQLITE_PATH,
DATABASE_URL, ...). Every command works on the same board.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

// AddCommands registers every subcommand on topLevel.
func AddCommands(topLevel *cobra.Command) {
	addServe(topLevel)
	addPost(topLevel)
	addMessages(topLevel)
	addRender(topLevel)
	addLayout(topLevel)
}
