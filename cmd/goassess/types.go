package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List known report types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tREQUIRED\tSTANDARDS")
			for _, rt := range a.Registry().List() {
				stds := make([]string, 0, len(rt.ComplianceRules))
				for _, r := range rt.ComplianceRules {
					stds = append(stds, r.Standard)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", rt.ID, rt.Name, len(rt.RequiredSections), strings.Join(stds, ", "))
			}
			return tw.Flush()
		},
	}
}
