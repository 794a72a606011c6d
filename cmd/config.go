package main

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
)

//go:embed default.yaml
var defaultConfigYAML []byte

// configEnvVar names a config file when -c is not given.
const configEnvVar = "AI_GATEWAY_CONFIG"

// loadEnvFiles loads .env from the working directory and the user config
// directory. Variables already set in the environment win.
func loadEnvFiles() {
	paths := []string{".env"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "ai-gateway", ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to load env file")
		}
	}
}

// loadConfig resolves the config source, applies flag overrides and returns
// the result without validating it.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv(configEnvVar)
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Parse(defaultConfigYAML)
	}
	if err != nil {
		return nil, err
	}

	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.debug {
		cfg.Monitoring.LogLevel = "debug"
	}
	return cfg, nil
}

// errNoStorage is returned by commands that need a relational store.
var errNoStorage = errors.New("storage.driver must be sqlite or postgres")
