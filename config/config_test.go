package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestConfig(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	setDefaults()

	var cfg Config
	require.NoError(t, viper.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultTestConfig(t)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 8086, cfg.API.Port)
	assert.Equal(t, 1.0, cfg.Engine.DefaultWindowHours)
	assert.Equal(t, 500, cfg.Engine.MaxSecurityEvents)
	assert.Equal(t, 200, cfg.Engine.MaxEndpoints)
	assert.Equal(t, 40, cfg.Engine.MinSaveFidelity)
	assert.Equal(t, 20, cfg.ThreatIntel.MaxBatch)
	assert.Equal(t, 70, cfg.Narrative.MinFidelity)
	assert.Equal(t, "high", cfg.Notifications.MinSeverity)
	assert.True(t, cfg.Auth.Enabled)
}

func TestValidate_RequiresJWTSecretWhenAuthEnabled(t *testing.T) {
	cfg := defaultTestConfig(t)
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "test-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PortRange(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.Auth.Enabled = false

	cfg.API.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.API.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.API.Port = 8086
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ThreatIntelURL(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.Auth.Enabled = false

	cfg.ThreatIntel.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.ThreatIntel.URL = "not-a-url"
	assert.Error(t, cfg.Validate())

	cfg.ThreatIntel.URL = "https://intel.example.com/v1/lookup"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TLSRequiresCertAndKey(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.Auth.Enabled = false

	cfg.API.TLS = true
	assert.Error(t, cfg.Validate())

	cfg.API.CertFile = "/tmp/cert.pem"
	cfg.API.KeyFile = "/tmp/key.pem"
	assert.NoError(t, cfg.Validate())
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := defaultTestConfig(t)
	assert.Equal(t, "10s", cfg.MongoTimeout().String())
	assert.Equal(t, "1m0s", cfg.RunTimeout().String())
}
