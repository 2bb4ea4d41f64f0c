// Package model contains the domain types passed between the distribution
// builder, the odds engine and the adapters.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// ScoringTable holds the points for each finishing rank, best rank first.
// Its length is the player count.
type ScoringTable []int64

// Validate rejects empty tables and negative entries.
func (t ScoringTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("scoring table is empty: %w", ErrInvalidArgument)
	}
	for i, p := range t {
		if p < 0 {
			return fmt.Errorf("scoring table rank %d has negative points %d: %w", i, p, ErrInvalidArgument)
		}
	}
	return nil
}

// PlayerCount is the number of rank outcomes per round.
func (t ScoringTable) PlayerCount() int { return len(t) }

// Clone returns an independent copy.
func (t ScoringTable) Clone() ScoringTable {
	out := make(ScoringTable, len(t))
	copy(out, t)
	return out
}

// String renders the table as a compact comma separated list, used in cache keys.
func (t ScoringTable) String() string {
	parts := make([]string, len(t))
	for i, p := range t {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// PlacementVector counts, per rank, the rounds a participant finished there.
type PlacementVector []int

// Rounds is the sum of the entries.
func (v PlacementVector) Rounds() int {
	n := 0
	for _, p := range v {
		n += p
	}
	return n
}

// Team is a participant and the score it carries into the remaining rounds.
type Team struct {
	Name          string  `json:"name" validate:"required"`
	StartingScore float64 `json:"starting_score"`
}

// Teams is the ordered roster. A team's index in the slice is its identity for
// every pairwise computation.
type Teams []Team

// Validate rejects an empty roster, blank names and duplicate names.
func (ts Teams) Validate() error {
	if len(ts) == 0 {
		return fmt.Errorf("no teams: %w", ErrInvalidArgument)
	}
	seen := make(map[string]int, len(ts))
	for i, t := range ts {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("team %d has an empty name: %w", i, ErrInvalidArgument)
		}
		if j, ok := seen[t.Name]; ok {
			return fmt.Errorf("team %q listed at %d and %d: %w", t.Name, j, i, ErrInvalidArgument)
		}
		seen[t.Name] = i
	}
	return nil
}

// Names returns team names in roster order.
func (ts Teams) Names() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// Odds are the placement probabilities of one team.
type Odds struct {
	First  float64 `json:"first"`
	Second float64 `json:"second"`
	Third  float64 `json:"third"`
	Podium float64 `json:"podium"`
}

// TeamOdds pairs a team name with its odds.
type TeamOdds struct {
	Name string `json:"name"`
	Odds
}

// Result is the ordered odds output, one entry per team in roster order.
type Result []TeamOdds

// ByName indexes the result by team name.
func (r Result) ByName() map[string]Odds {
	out := make(map[string]Odds, len(r))
	for _, to := range r {
		out[to.Name] = to.Odds
	}
	return out
}

// Clone returns an independent copy.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	copy(out, r)
	return out
}

// Scoring presets carried over from past competitions.
const (
	PresetMarbleRally2020  = "marble-rally-2020"
	PresetMarbleLeague2020 = "marble-league-2020"
)

var presets = map[string]ScoringTable{
	PresetMarbleRally2020:  {20, 17, 14, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0, 0, 0, 0, 0},
	PresetMarbleLeague2020: {25, 20, 15, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

// Preset returns a copy of the named scoring table.
func Preset(name string) (ScoringTable, error) {
	t, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%q, known presets are %s: %w", name, strings.Join(PresetNames(), ", "), ErrUnknownPreset)
	}
	return t.Clone(), nil
}

// PresetNames lists the known presets, sorted.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
