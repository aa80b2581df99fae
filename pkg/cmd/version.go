package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Short:   "print coverpilot's version",
		Example: "coverpilot version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "CoverPilot Version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Runtime SHA: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Created At: %s\n", date)
			return nil
		},
	}
	return cmd
}
