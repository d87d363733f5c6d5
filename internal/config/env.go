package config

import (
	"os"
	"strconv"
)

// Environment variable names for overrides.
const (
	EnvConfig      = "AMEE_GO_CONFIG"
	EnvHost        = "AMEE_GO_HOST"
	EnvAPIKey      = "AMEE_GO_API_KEY"
	EnvAPIPassword = "AMEE_GO_API_PASSWORD"
	EnvDebug       = "AMEE_GO_DEBUG"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // AMEE_GO_CONFIG: override config file path
	Host        string // AMEE_GO_HOST: API host
	APIKey      string // AMEE_GO_API_KEY: project key
	APIPassword string // AMEE_GO_API_PASSWORD: project password
	Debug       *bool  // AMEE_GO_DEBUG: nil when unset or unparsable
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify a Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	env := EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		Host:        os.Getenv(EnvHost),
		APIKey:      os.Getenv(EnvAPIKey),
		APIPassword: os.Getenv(EnvAPIPassword),
	}

	if raw := os.Getenv(EnvDebug); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			env.Debug = &b
		}
	}

	return env
}
