package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.PlayerCount, convey.ShouldEqual, 20)
			convey.So(cfg.ScoringPreset, convey.ShouldEqual, model.PresetMarbleRally2020)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.BuildStrategy, convey.ShouldEqual, "convolution")
			convey.So(cfg.RedisURL, convey.ShouldBeEmpty)
			convey.So(cfg.RedisTTL(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.OddsRateLimit, convey.ShouldEqual, 0.0)
			convey.So(cfg.BuildTimeout(), convey.ShouldEqual, 10*time.Minute)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the table resolves to the preset", func() {
			table, err := cfg.Table()
			convey.So(err, convey.ShouldBeNil)
			convey.So(table.PlayerCount(), convey.ShouldEqual, 20)
			convey.So(table[0], convey.ShouldEqual, int64(20))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When an explicit table overrides the preset", func() {
			cfg.ScoringTable = []int64{3, 1, 0}
			cfg.PlayerCount = 3

			convey.Convey("Then it validates and wins over the preset", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				table, _ := cfg.Table()
				convey.So(table, convey.ShouldResemble, model.ScoringTable{3, 1, 0})
			})
		})

		convey.Convey("When the table length disagrees with player_count", func() {
			cfg.PlayerCount = 16

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "player_count 16")
			})
		})

		convey.Convey("When the preset is unknown", func() {
			cfg.ScoringPreset = "marble-olympics"

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "marble-olympics")
			})
		})

		convey.Convey("When a field rule is broken", func() {
			cases := map[string]func(c *config.Config){
				"LogLevel":            func(c *config.Config) { c.LogLevel = "verbose" },
				"Addr":                func(c *config.Config) { c.Addr = "" },
				"PlayerCount":         func(c *config.Config) { c.PlayerCount = 0 },
				"WorkerCount":         func(c *config.Config) { c.WorkerCount = -1 },
				"CacheTTLSeconds":     func(c *config.Config) { c.CacheTTLSeconds = -5 },
				"BuildStrategy":       func(c *config.Config) { c.BuildStrategy = "guess" },
				"ScoringTable":        func(c *config.Config) { c.ScoringTable = []int64{1, -1} },
				"RedisURL":            func(c *config.Config) { c.RedisURL = "not a url" },
				"RedisTTLSeconds":     func(c *config.Config) { c.RedisTTLSeconds = -1 },
				"OddsRateLimit":       func(c *config.Config) { c.OddsRateLimit = -1 },
				"OddsRateBurst":       func(c *config.Config) { c.OddsRateBurst = -1 },
				"BuildTimeoutSeconds": func(c *config.Config) { c.BuildTimeoutSeconds = -1 },
			}

			convey.Convey("Then the failing field is named", func() {
				for field, mutate := range cases {
					c := config.New()
					mutate(c)
					err := c.Validate()
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, field)
				}
			})
		})
	})
}
