package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/tools"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("precompute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		rounds   = fs.Int("rounds", -1, "Rounds still to be played")
		out      = fs.String("out", "", "Output file (default: store file name in the working directory)")
		preset   = fs.String("preset", model.PresetMarbleRally2020, "Named scoring table: "+strings.Join(model.PresetNames(), ", "))
		table    = fs.String("table", "", "Comma separated points per rank; overrides -preset")
		strategy = fs.String("strategy", "convolution", "Build strategy: convolution or enumeration")
		logLevel = fs.String("log-level", "info", "Log level")
		verbose  = fs.Bool("verbose", false, "Enable verbose logging")
		help     = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		tools.ShowPrecomputeHelp(stdout)
		return 0
	}
	if *rounds < 0 {
		fmt.Fprintln(stderr, "precompute: -rounds is required")
		tools.ShowPrecomputeHelp(stderr)
		return 2
	}
	if err := tools.SetupLogging(*logLevel, *verbose); err != nil {
		fmt.Fprintln(stderr, "failed to setup logging:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := tools.Precompute(ctx, tools.PrecomputeConfig{
		Rounds:   *rounds,
		Out:      *out,
		Preset:   *preset,
		Table:    *table,
		Strategy: *strategy,
	})
	if err != nil {
		fmt.Fprintln(stderr, "precompute failed:", err)
		return 1
	}
	fmt.Fprintln(stdout, path)
	return 0
}
