package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// ResolveTable returns the explicit table when one is given, else the preset.
func ResolveTable(preset, table string) (model.ScoringTable, error) {
	if strings.TrimSpace(table) == "" {
		if strings.TrimSpace(preset) == "" {
			preset = model.PresetMarbleRally2020
		}
		return model.Preset(preset)
	}
	return ParseTable(table)
}

// ParseTable parses "25,18,15" into a scoring table.
func ParseTable(s string) (model.ScoringTable, error) {
	parts := strings.Split(s, ",")
	out := make(model.ScoringTable, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scoring table entry %q: %w", p, model.ErrInvalidArgument)
		}
		out = append(out, v)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
