package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/goassess/internal/app"
	"github.com/hyperifyio/goassess/internal/export"
)

func (c *cli) watchCmd() *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Assess reports as they are written to a directory",
		Long: `Watch a directory and assess every Markdown, text or HTML report created or
changed in it. Each assessment is written next to its report as
<name>.assessment.md. Report type definitions in --registry-dir are reloaded
as they change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.WatchDir(ctx, args[0], settle, func(path string, res *export.Assessment, err error) {
				if err != nil {
					return
				}
				out := assessmentPath(path)
				if werr := app.WriteOutputs(app.Config{OutputPath: out}, res, nil); werr != nil {
					log.Warn().Err(werr).Str("file", out).Msg("write assessment failed")
					return
				}
				log.Info().Str("file", path).Float64("overall", res.Result.Scores.Overall).Str("assessment", out).Msg("assessed")
			})
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "Quiet period before a changed file is assessed")
	return cmd
}

func assessmentPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + app.AssessmentSuffix
}
