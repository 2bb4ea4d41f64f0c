// Package repository stores built distributions and reads and writes the JSON
// files the command-line tools exchange.
package repository

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
)

// Key identifies one build: the same table and round count always yield the
// same multiplicities.
type Key struct {
	Rounds      int
	PlayerCount int
	Table       string
}

// KeyFor derives the key for building table over rounds.
func KeyFor(table model.ScoringTable, rounds int) Key {
	return Key{Rounds: rounds, PlayerCount: table.PlayerCount(), Table: table.String()}
}

func (k Key) String() string {
	return fmt.Sprintf("p%d/r%d/%s", k.PlayerCount, k.Rounds, k.Table)
}

// FileName is a stable, filesystem safe name for the key. Tables are told
// apart by the first 128 bits of their SHA-256.
func (k Key) FileName() string {
	sum := sha256.Sum256([]byte(k.Table))
	return fmt.Sprintf("distribution_p%d_r%d_%x.json", k.PlayerCount, k.Rounds, sum[:16])
}

// check reports ErrMalformed when m cannot be the build k names: every build
// over k.Rounds rounds counts exactly PlayerCount^Rounds outcomes.
func (k Key) check(m distribution.Multiplicities) error {
	space, err := distribution.OutcomeSpace(k.PlayerCount, k.Rounds)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", k, ErrMalformed, err)
	}
	if total := m.Total(); total.Cmp(space) != 0 {
		return fmt.Errorf("%s: %w: %s outcomes stored, want %s", k, ErrMalformed, total, space)
	}
	return nil
}

// DistributionStore persists multiplicities by key.
type DistributionStore interface {
	// Save stores m under key, replacing any previous value.
	Save(ctx context.Context, key Key, m distribution.Multiplicities) error
	// Load returns the multiplicities stored under key.
	// Returns ErrNotFound if nothing is stored.
	Load(ctx context.Context, key Key) (distribution.Multiplicities, error)
}
