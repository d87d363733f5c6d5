package config

// Default values for configuration options. These are layer 0 of the
// override chain.
const (
	defaultPort              = 80
	defaultSSLPort           = 443
	defaultLogLevel          = "info"
	defaultTimeout           = "30s"
	defaultRequestsPerSecond = 0
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		APIConfig:     defaultAPIConfig(),
		LoggingConfig: defaultLoggingConfig(),
		NetworkConfig: defaultNetworkConfig(),
	}
}

func defaultAPIConfig() APIConfig {
	return APIConfig{
		Port:    defaultPort,
		SSLPort: defaultSSLPort,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel: defaultLogLevel,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Timeout:           defaultTimeout,
		RequestsPerSecond: defaultRequestsPerSecond,
	}
}
