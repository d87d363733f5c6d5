// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for amee-go. Values are layered
// defaults -> config file -> environment -> CLI flags and read once at
// startup; there is no live reload.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the top-level configuration parsed from a TOML file. The
// embedded sections are flattened, so every key lives at the top level.
type Config struct {
	APIConfig
	LoggingConfig
	NetworkConfig
}

// APIConfig locates the service and holds the project credentials.
// Authentication always uses HTTPS on ssl_port; plain_http moves the
// remaining data requests to HTTP on port.
type APIConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	SSLPort     int    `toml:"ssl_port"`
	APIKey      string `toml:"api_key"`
	APIPassword string `toml:"api_password"`
	PlainHTTP   bool   `toml:"plain_http"`
}

// LoggingConfig controls log verbosity. debug also turns on request and
// response body logging in the API client.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
	Debug    bool   `toml:"debug"`
}

// NetworkConfig controls the HTTP client.
type NetworkConfig struct {
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	Host       string // --host flag
	Debug      *bool  // --debug flag
}

// Settings is the resolved surface an API client is constructed from.
type Settings struct {
	BaseURL           string
	AuthURL           string
	APIKey            string
	APIPassword       string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Debug             bool
}

// Settings returns the client settings with URLs and timeout resolved.
func (c *Config) Settings() Settings {
	return Settings{
		BaseURL:           c.BaseURL(),
		AuthURL:           c.AuthURL(),
		APIKey:            c.APIKey,
		APIPassword:       c.APIPassword,
		UserAgent:         c.UserAgent,
		Timeout:           c.HTTPTimeout(),
		RequestsPerSecond: c.RequestsPerSecond,
		Debug:             c.Debug,
	}
}

// AuthURL returns the base URL authentication requests are sent to.
func (c *Config) AuthURL() string {
	return "https://" + net.JoinHostPort(c.Host, strconv.Itoa(c.SSLPort))
}

// BaseURL returns the base URL for data requests.
func (c *Config) BaseURL() string {
	if c.PlainHTTP {
		return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}

	return c.AuthURL()
}

// HTTPTimeout returns the parsed request timeout. Validate guarantees
// the value parses; an unparsable value falls back to the default.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultTimeout)
	}

	return d
}
