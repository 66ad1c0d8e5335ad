package main

import (
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newCLI(os.Stdin).root().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes: 2 when an assessment did not
// meet the threshold, 1 for every other error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrBelowThreshold):
		log.Error().Err(err).Msg("assessment failed")
		return 2
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}
