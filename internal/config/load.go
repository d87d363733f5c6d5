package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal with "did you mean?"
// suggestions, since a silently ignored typo in a credential key is hard
// to debug.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger.Debug("loaded config file", slog.String("path", path))

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", slog.String("path", path))
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The file itself is validated by Load; ValidateResolved then checks the
// merged result, which must name a host.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. File (or defaults when absent)
	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.Host != "" {
		cfg.Host = env.Host
	}

	if env.APIKey != "" {
		cfg.APIKey = env.APIKey
	}

	if env.APIPassword != "" {
		cfg.APIPassword = env.APIPassword
	}

	if env.Debug != nil {
		cfg.Debug = *env.Debug
	}

	// 4. CLI flags
	if cli.Host != "" {
		cfg.Host = cli.Host
	}

	if cli.Debug != nil {
		cfg.Debug = *cli.Debug
	}

	if err := ValidateResolved(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}
