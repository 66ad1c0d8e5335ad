package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/goassess/internal/app"
	"github.com/hyperifyio/goassess/internal/export"
)

func (c *cli) assessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess [file]",
		Short: "Decompile, map and validate a report",
		Long: `Assess a report read from file, or from stdin when no file is given.

The report type is detected unless --type is set. The Markdown assessment is
printed to stdout unless an output path is given. The process exits with
status 2 when the overall score is below --fail-under.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.runAssess,
	}
	c.addInputFlags(cmd.Flags())
	c.addAssessFlags(cmd.Flags())
	return cmd
}

func (c *cli) runAssess(cmd *cobra.Command, args []string) error {
	a, cfg, err := c.openWithInput(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := app.ReadInput(cfg, c.stdin)
	if err != nil {
		return err
	}
	res, err := a.Assess(cmd.Context(), in.Text, in.Format)
	if err != nil {
		return err
	}
	return finish(cmd, cfg, res)
}

// finish writes the configured outputs and applies the score threshold.
func finish(cmd *cobra.Command, cfg app.Config, res *export.Assessment) error {
	if cfg.OutputPath == "" && cfg.OutputJSONPath == "" && cfg.OutputPDFPath == "" && cfg.OutputSARIFPath == "" {
		cfg.OutputPath = "-"
	}
	if err := app.WriteOutputs(cfg, res, cmd.OutOrStdout()); err != nil {
		return err
	}
	return app.CheckThreshold(res.Result, cfg.FailUnder)
}

func (c *cli) decompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decompile [file]",
		Short: "Decompile a report and print its structure as JSON",
		Long:  `Decompile a report into sections, metadata, terminology and compliance markers. The report is stored and can be validated later by id.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.runDecompile,
	}
	c.addInputFlags(cmd.Flags())
	return cmd
}

func (c *cli) runDecompile(cmd *cobra.Command, args []string) error {
	a, cfg, err := c.openWithInput(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := app.ReadInput(cfg, c.stdin)
	if err != nil {
		return err
	}
	rep, err := a.Decompile(cmd.Context(), in.Text, in.Format)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func (c *cli) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <report-id>",
		Short: "Validate a stored report against the current rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Revalidate(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("validate %s: %w", args[0], err)
			}
			return finish(cmd, cfg, res)
		},
	}
	c.addAssessFlags(cmd.Flags())
	return cmd
}
