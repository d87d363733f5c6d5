package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a debug-level logger so config debug output appears
// in test output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
host = "stage.amee.com"
port = 8080
ssl_port = 8443
api_key = "project"
api_password = "secret"
plain_http = true

log_level = "debug"
debug = true

timeout = "45s"
requests_per_second = 2.5
user_agent = "carbon-report/1.0"
`)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "stage.amee.com", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8443, cfg.SSLPort)
	assert.Equal(t, "project", cfg.APIKey)
	assert.Equal(t, "secret", cfg.APIPassword)
	assert.True(t, cfg.PlainHTTP)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 45*time.Second, cfg.HTTPTimeout())
	assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 1e-9)
	assert.Equal(t, "carbon-report/1.0", cfg.UserAgent)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, `host = "stage.amee.com"`)

	cfg, err := Load(path, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "stage.amee.com", cfg.Host)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultSSLPort, cfg.SSLPort)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.False(t, cfg.PlainHTTP)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, `host = `)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	path := writeTestConfig(t, `
port = 0
ssl_port = 70000
log_level = "loud"
timeout = "10ms"
requests_per_second = -1
`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "port: must be between")
	assert.Contains(t, msg, "ssl_port: must be between")
	assert.Contains(t, msg, "log_level")
	assert.Contains(t, msg, "timeout: must be >=")
	assert.Contains(t, msg, "requests_per_second")
}

func TestLoad_UnknownKeySuggestion(t *testing.T) {
	path := writeTestConfig(t, `api_pasword = "secret"`)

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "api_pasword"`)
	assert.Contains(t, err.Error(), `did you mean "api_password"?`)
}

func TestLoad_UnknownTableReportedOnce(t *testing.T) {
	path := writeTestConfig(t, "[network]\ntimeout = \"5s\"\nretries = 3\n")

	_, err := Load(path, testLogger(t))
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "unknown config key"))
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"), testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_OverrideChain(t *testing.T) {
	path := writeTestConfig(t, `
host = "file.example.com"
api_key = "file-key"
api_password = "file-password"
debug = false
`)

	envDebug := true
	cliDebug := false

	cfg, err := Resolve(
		EnvOverrides{ConfigPath: path, Host: "env.example.com", APIKey: "env-key", APIPassword: "env-password", Debug: &envDebug},
		CLIOverrides{Host: "cli.example.com", Debug: &cliDebug},
		testLogger(t),
	)
	require.NoError(t, err)

	assert.Equal(t, "cli.example.com", cfg.Host)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "env-password", cfg.APIPassword)
	assert.False(t, cfg.Debug)
}

func TestResolve_CLIConfigPathWins(t *testing.T) {
	envPath := writeTestConfig(t, `host = "env-file.example.com"`)
	cliPath := writeTestConfig(t, `host = "cli-file.example.com"`)

	cfg, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath}, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "cli-file.example.com", cfg.Host)
}

func TestResolve_RequiresHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{}, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host: must be set")
}

func TestResolve_RejectsHostWithScheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{Host: "https://stage.amee.com"}, testLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bare host name")
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/amee.toml")
	t.Setenv(EnvHost, "env.example.com")
	t.Setenv(EnvAPIKey, "key")
	t.Setenv(EnvAPIPassword, "password")
	t.Setenv(EnvDebug, "1")

	env := ReadEnvOverrides()
	assert.Equal(t, "/tmp/amee.toml", env.ConfigPath)
	assert.Equal(t, "env.example.com", env.Host)
	assert.Equal(t, "key", env.APIKey)
	assert.Equal(t, "password", env.APIPassword)
	require.NotNil(t, env.Debug)
	assert.True(t, *env.Debug)
}

func TestReadEnvOverrides_UnparsableDebugIgnored(t *testing.T) {
	t.Setenv(EnvDebug, "sometimes")

	assert.Nil(t, ReadEnvOverrides().Debug)
}
