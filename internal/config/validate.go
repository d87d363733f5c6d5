package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation range constants.
const (
	minPort    = 1
	maxPort    = 65535
	minTimeout = 1 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.APIConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only hold once every override
// layer has been applied: a config file may leave the host to the
// environment or a flag, but the merged result must name one.
func ValidateResolved(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Host) == "" {
		errs = append(errs, fmt.Errorf("host: must be set (config file, %s, or --host)", EnvHost))
	}

	errs = append(errs, validateAPI(&cfg.APIConfig)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if strings.ContainsAny(a.Host, "/: ") {
		errs = append(errs, fmt.Errorf("host: must be a bare host name, got %q", a.Host))
	}

	errs = append(errs, validatePort("port", a.Port)...)
	errs = append(errs, validatePort("ssl_port", a.SSLPort)...)

	if (a.APIKey == "") != (a.APIPassword == "") {
		errs = append(errs, errors.New("api_key and api_password: must be set together"))
	}

	return errs
}

func validatePort(field string, port int) []error {
	if port < minPort || port > maxPort {
		return []error{fmt.Errorf("%s: must be between %d and %d, got %d", field, minPort, maxPort, port)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	return validateLogLevel(l.LogLevel)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("timeout: invalid duration %q: %w", n.Timeout, err))
	} else if d < minTimeout {
		errs = append(errs, fmt.Errorf("timeout: must be >= %s, got %s", minTimeout, d))
	}

	if n.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second: must be >= 0, got %g", n.RequestsPerSecond))
	}

	return errs
}
