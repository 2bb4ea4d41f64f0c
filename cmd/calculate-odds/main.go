package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/podium/internal/tools"
)

const defaultTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("calculate-odds", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		distribution = fs.String("distribution", "", "Distribution file")
		teams        = fs.String("teams", "", "Teams file: {\"<name>\": <starting score>}")
		rounds       = fs.Int("rounds", -1, "Rounds still to be played")
		participants = fs.Int("participants", 0, "Participants per round (default: number of teams)")
		out          = fs.String("out", "", "Output file (default: stdout)")
		workers      = fs.Int("workers", runtime.NumCPU(), "Teams evaluated concurrently")
		url          = fs.String("url", "", "Base URL of a running service; ignores -distribution")
		timeout      = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		retries      = fs.Int("retries", 3, "Retries after a failed remote attempt")
		logLevel     = fs.String("log-level", "info", "Log level")
		verbose      = fs.Bool("verbose", false, "Enable verbose logging")
		help         = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		tools.ShowCalculateOddsHelp(stdout)
		return 0
	}
	if *teams == "" || *rounds < 0 || (*distribution == "" && *url == "") {
		fmt.Fprintln(stderr, "calculate-odds: -teams, -rounds and one of -distribution or -url are required")
		tools.ShowCalculateOddsHelp(stderr)
		return 2
	}
	if err := tools.SetupLogging(*logLevel, *verbose); err != nil {
		fmt.Fprintln(stderr, "failed to setup logging:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err := tools.CalculateOdds(ctx, tools.OddsConfig{
		Distribution: *distribution,
		Teams:        *teams,
		Rounds:       *rounds,
		Participants: *participants,
		Out:          *out,
		Workers:      *workers,
		URL:          *url,
		Timeout:      *timeout,
		Retries:      *retries,
	}, stdout)
	if err != nil {
		fmt.Fprintln(stderr, "calculate-odds failed:", err)
		return 1
	}
	return 0
}
