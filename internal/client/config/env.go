package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name read by parseEnv.
const EnvPrefix = "DABOOKS_"

// parseEnv loads dotenvFile (when it exists) into the process environment
// and overlays Config with DABOOKS_* variables. Unset variables leave the
// current values untouched. Panics on malformed values, like the other
// loaders.
func parseEnv(cfg *Config, dotenvFile string) {
	if dotenvFile != "" {
		if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
