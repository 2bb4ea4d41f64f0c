package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/okian/podium/internal/tools"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify-distribution", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		distribution = fs.String("distribution", "", "Distribution file")
		participants = fs.Int("participants", 0, "Participants per round")
		rounds       = fs.Int("rounds", -1, "Rounds the file covers")
		logLevel     = fs.String("log-level", "warn", "Log level")
		help         = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		tools.ShowVerifyHelp(stdout)
		return 0
	}
	if *distribution == "" || *participants < 1 || *rounds < 0 {
		fmt.Fprintln(stderr, "verify-distribution: -distribution, -participants and -rounds are required")
		tools.ShowVerifyHelp(stderr)
		return 2
	}
	if err := tools.SetupLogging(*logLevel, false); err != nil {
		fmt.Fprintln(stderr, "failed to setup logging:", err)
		return 1
	}

	sum, err := tools.VerifyDistribution(context.Background(), tools.VerifyConfig{
		Distribution: *distribution,
		Participants: *participants,
		Rounds:       *rounds,
	})
	if err != nil {
		fmt.Fprintln(stderr, "verify-distribution failed:", err)
		return 1
	}
	fmt.Fprintln(stdout, strconv.FormatFloat(sum, 'g', -1, 64))
	return 0
}
