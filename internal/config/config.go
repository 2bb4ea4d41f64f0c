// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New() returns defaults; Load(ctx) layers a YAML file and env vars on top.
// - Every loaded Config is validated before it is returned.
// - Validation failures wrap ErrInvalidConfig, load failures wrap ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"loglevel"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// PlayerCount is the number of players ranked in every round.
	PlayerCount int `koanf:"player_count" validate:"gte=1"`

	// ScoringPreset names a built-in scoring table. Ignored when ScoringTable is set.
	ScoringPreset string `koanf:"scoring_preset"`

	// ScoringTable lists points per finishing rank, best rank first.
	ScoringTable []int64 `koanf:"scoring_table" validate:"omitempty,dive,gte=0"`

	// WorkerCount sets the number of per-team odds workers. Zero runs inline.
	WorkerCount int `koanf:"worker_count" validate:"gte=0"`

	// CacheTTLSeconds bounds how long a built distribution stays in memory.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" validate:"gte=0"`

	// DataDir, when set, persists built distributions as JSON files.
	DataDir string `koanf:"data_dir"`

	// BuildTimeoutSeconds bounds a single distribution build. Zero means no bound.
	BuildTimeoutSeconds int `koanf:"build_timeout_seconds" validate:"gte=0"`

	// BuildStrategy selects how distributions are built: convolution or enumeration.
	BuildStrategy string `koanf:"build_strategy" validate:"strategy"`

	// RedisURL, when set, shares built distributions through Redis, e.g.
	// "redis://localhost:6379/0". It takes precedence over DataDir.
	RedisURL string `koanf:"redis_url" validate:"omitempty,url"`

	// RedisTTLSeconds expires distributions stored in Redis. Zero keeps them.
	RedisTTLSeconds int `koanf:"redis_ttl_seconds" validate:"gte=0"`

	// CORSAllowedOrigins lists the browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// OddsRateLimit caps POST /odds requests per second across all clients.
	// Zero disables the limit.
	OddsRateLimit float64 `koanf:"odds_rate_limit" validate:"gte=0"`

	// OddsRateBurst is how many requests may exceed OddsRateLimit at once.
	OddsRateBurst int `koanf:"odds_rate_burst" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		PlayerCount:     20,
		ScoringPreset:   model.PresetMarbleRally2020,
		WorkerCount:     runtime.NumCPU(),
		CacheTTLSeconds: 3600,
		BuildStrategy:   "convolution",

		BuildTimeoutSeconds: 600,

		CORSAllowedOrigins: []string{"*"},
		OddsRateBurst:      10,
	}
}

// Table resolves the scoring table: the explicit table when set, otherwise the
// named preset.
func (c *Config) Table() (model.ScoringTable, error) {
	if len(c.ScoringTable) > 0 {
		return model.ScoringTable(c.ScoringTable).Clone(), nil
	}
	t, err := model.Preset(c.ScoringPreset)
	if err != nil {
		return nil, fmt.Errorf("scoring_preset: %w", err)
	}
	return t, nil
}

// RedisTTL returns the Redis TTL as a duration.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}

// BuildTimeout returns the build timeout as a duration.
func (c *Config) BuildTimeout() time.Duration {
	return time.Duration(c.BuildTimeoutSeconds) * time.Second
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
