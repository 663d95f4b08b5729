package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load fills cfg from environment variables using `env` struct tags.
//
// Values from the optional dotenv files are applied first. Variables that are
// already set in the environment take precedence over the files. Missing
// files are ignored.
//
//	type Config struct {
//	    Port   int    `env:"HTTP_PORT" envDefault:"8080"`
//	    APIURL string `env:"API_URL" envDefault:"http://localhost"`
//	}
func Load(cfg any, dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
