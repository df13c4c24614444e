package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/authbridge/internal/flagx"
)

// parseEnv overlays values from the process environment. Variables from the
// dotenv file (-env-file, default ".env") are loaded first without
// overriding variables already set. A missing dotenv file is not an error;
// malformed files and unparsable values panic.
func parseEnv(config *Config) {
	if err := godotenv.Load(flagx.EnvFileFlag()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
