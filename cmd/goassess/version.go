package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/goassess/internal/app"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s)\n", app.ToolName, app.BuildVersion, app.BuildCommit, app.BuildDate)
		},
	}
}
