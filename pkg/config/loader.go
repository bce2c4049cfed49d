// Package config parses environment variables into tagged structs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the environment using its `env` tags:
//
//	type Config struct {
//	    Port      int           `env:"HTTP_PORT" envDefault:"8080"`
//	    JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
//	}
//
// Cross-field validation belongs to the caller; this only parses.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
