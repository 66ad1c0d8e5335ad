package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperifyio/goassess/internal/mcpserver"
)

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve assessment tools over MCP stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
decompile_report, assess_report, list_report_types and list_rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return mcpserver.Serve(a)
		},
	}
}
