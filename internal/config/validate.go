package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/logger"
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logger.ValidLevel(fl.Field().String())
	})
	_ = v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := distribution.ParseStrategy(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field rules and the cross-field constraint that the scoring
// table has one entry per player.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	table, err := c.Table()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("%w: scoring table: %v", ErrInvalidConfig, err)
	}
	if table.PlayerCount() != c.PlayerCount {
		return fmt.Errorf("%w: scoring table has %d entries for player_count %d",
			ErrInvalidConfig, table.PlayerCount(), c.PlayerCount)
	}
	return nil
}
