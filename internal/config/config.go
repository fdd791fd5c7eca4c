// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MonolithConfig holds all configuration for monolith mode
type MonolithConfig struct {
	PartyGameConfig
	WebSocketPath string `env:"WS_PATH" envDefault:"/ws"`
}

// LoadMonolithConfig loads all configurations for monolith mode
func LoadMonolithConfig() (*MonolithConfig, error) {
	cfg := &MonolithConfig{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load reads ENV_FILE (default .env) if present, then parses target. Values
// already in the environment win over the file.
func load(target interface{}) error {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", file, err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
