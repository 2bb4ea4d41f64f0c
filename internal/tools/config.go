package tools

import "time"

// PrecomputeConfig holds configuration for building a distribution file.
type PrecomputeConfig struct {
	Rounds   int    // Rounds still to be played
	Out      string // Output file; empty means the store file name in the working directory
	Preset   string // Named scoring table
	Table    string // Comma separated points per rank; overrides Preset
	Strategy string // Build strategy: convolution or enumeration
}

// OddsConfig holds configuration for an odds calculation.
type OddsConfig struct {
	Distribution string        // Distribution file (local mode)
	Teams        string        // Teams file, an object of name to starting score
	Rounds       int           // Rounds still to be played
	Participants int           // Participants per round; zero means one per team
	Out          string        // Output file; empty means stdout
	Workers      int           // Concurrent team evaluations; below 2 runs inline
	URL          string        // Base URL of a running service; switches to remote mode
	Timeout      time.Duration // HTTP request timeout (remote mode)
	Retries      int           // Retries after a failed remote attempt
}

// VerifyConfig holds configuration for checking a distribution file.
type VerifyConfig struct {
	Distribution string // Distribution file
	Participants int    // Participants per round
	Rounds       int    // Rounds the file claims to cover
}
