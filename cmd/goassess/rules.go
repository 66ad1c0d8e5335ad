package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List and toggle validation rules",
		Long:  `Rule toggles are persisted in the store and apply to every later run.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List validation rules",
			Args:  cobra.NoArgs,
			RunE:  c.runRulesList,
		},
		&cobra.Command{
			Use:   "enable <rule-id>",
			Short: "Enable a rule",
			Args:  cobra.ExactArgs(1),
			RunE:  c.toggleRule(true),
		},
		&cobra.Command{
			Use:   "disable <rule-id>",
			Short: "Disable a rule",
			Args:  cobra.ExactArgs(1),
			RunE:  c.toggleRule(false),
		},
	)
	return cmd
}

func (c *cli) runRulesList(cmd *cobra.Command, _ []string) error {
	a, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSEVERITY\tWEIGHT\tENABLED")
	for _, r := range a.Engine().Rules() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", r.ID, r.Type, r.Severity, r.Weight, r.Enabled)
	}
	return tw.Flush()
}

func (c *cli) toggleRule(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, _, err := c.open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetRuleEnabled(cmd.Context(), args[0], enabled); err != nil {
			return fmt.Errorf("toggle %s: %w", args[0], err)
		}
		state := "Disabled"
		if enabled {
			state = "Enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rule %s\n", state, args[0])
		return nil
	}
}
