package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage stored reports",
		Long:  `List, show or delete decompiled reports kept in the store.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored reports, newest first",
			Args:  cobra.NoArgs,
			RunE:  c.runReportsList,
		},
		&cobra.Command{
			Use:   "show <report-id>",
			Short: "Print a stored report as JSON",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runReportsShow,
		},
		&cobra.Command{
			Use:   "delete <report-id>",
			Short: "Delete a stored report",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runReportsDelete,
		},
	)
	return cmd
}

func (c *cli) runReportsList(cmd *cobra.Command, _ []string) error {
	a, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Reports().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports stored.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCONFIDENCE\tCREATED\tTITLE")
	for _, r := range list {
		typ := r.ReportTypeID
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", r.ID, typ, r.Confidence, r.CreatedAt.Format(time.RFC3339), r.Title)
	}
	return tw.Flush()
}

func (c *cli) runReportsShow(cmd *cobra.Command, args []string) error {
	a, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Reports().Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("show %s: %w", args[0], err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func (c *cli) runReportsDelete(cmd *cobra.Command, args []string) error {
	a, _, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Reports().Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
	return nil
}
