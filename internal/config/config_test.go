package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_URLs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "stage.amee.com"

	assert.Equal(t, "https://stage.amee.com:443", cfg.AuthURL())
	assert.Equal(t, "https://stage.amee.com:443", cfg.BaseURL())

	cfg.PlainHTTP = true
	cfg.Port = 8080

	assert.Equal(t, "https://stage.amee.com:443", cfg.AuthURL())
	assert.Equal(t, "http://stage.amee.com:8080", cfg.BaseURL())
}

func TestConfig_Settings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "stage.amee.com"
	cfg.PlainHTTP = true
	cfg.Port = 8080
	cfg.APIKey = "key"
	cfg.APIPassword = "password"
	cfg.Timeout = "45s"
	cfg.RequestsPerSecond = 2.5
	cfg.UserAgent = "amee-test/1.0"
	cfg.Debug = true

	assert.Equal(t, Settings{
		BaseURL:           "http://stage.amee.com:8080",
		AuthURL:           "https://stage.amee.com:443",
		APIKey:            "key",
		APIPassword:       "password",
		UserAgent:         "amee-test/1.0",
		Timeout:           45 * time.Second,
		RequestsPerSecond: 2.5,
		Debug:             true,
	}, cfg.Settings())
}

func TestConfig_HTTPTimeoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = "soon"

	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
}

func TestValidate_CredentialsTogether(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "key"

	err := Validate(cfg)
	assert.ErrorContains(t, err, "must be set together")

	cfg.APIPassword = "password"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "ssl_port", closestMatch("sslport", knownKeysList))
	assert.Equal(t, "timeout", closestMatch("timout", knownKeysList))
	assert.Empty(t, closestMatch("completely_unrelated", knownKeysList))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("host", "host"))
	assert.Equal(t, 4, levenshtein("", "host"))
	assert.Equal(t, 1, levenshtein("port", "ports"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
