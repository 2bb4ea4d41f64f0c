package tools

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// SetupLogging points the global logger at stderr so results on stdout stay
// machine readable.
func SetupLogging(level string, verbose bool) error {
	if err := logger.InitWriter(os.Stderr, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		level = "debug"
	}
	return logger.SetLevelString(level)
}

// ShowPrecomputeHelp prints usage information for the precompute tool.
func ShowPrecomputeHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Precompute
==========

Builds the score distribution for the remaining rounds and writes it as
{"<score>": <multiplicity>}.

Usage:
  precompute -rounds N [-preset NAME | -table 25,18,15,...] [-strategy convolution|enumeration] [-out FILE]

Examples:
  precompute -rounds 3 -preset marble-league-2020 -out league_3.json
  precompute -rounds 2 -table 3,1,0 -strategy enumeration
`)
	_, _ = fmt.Fprintf(w, "\nPresets:\n  %s\n", strings.Join(model.PresetNames(), "\n  "))
}

// ShowCalculateOddsHelp prints usage information for the calculate-odds tool.
func ShowCalculateOddsHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Calculate Odds
==============

Reads {"<team>": <starting score>} and writes
{"<team>": {"first", "second", "third", "podium"}} in the same order.

Usage:
  calculate-odds -teams FILE -rounds N [-distribution FILE] [-participants P]
                 [-out FILE] [-workers W] [-url URL] [-timeout D] [-retries R]

With -url the odds come from a running service and -distribution is ignored.
Connection errors, 429 and 5xx answers are retried up to -retries times.

Examples:
  calculate-odds -distribution league_3.json -teams teams.json -rounds 3 -out odds.json
  calculate-odds -url http://localhost:9080 -teams teams.json -rounds 3
`)
}

// ShowVerifyHelp prints usage information for the verify-distribution tool.
func ShowVerifyHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Verify Distribution
===================

Renormalizes a distribution file over participants^rounds and prints the sum.
A file that matches its outcome space prints 1.

Usage:
  verify-distribution -distribution FILE -participants P -rounds N
`)
}
