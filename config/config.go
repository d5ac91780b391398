// Package config loads Argus service configuration from file and
// environment, with validated defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the Argus correlation service.
type Config struct {
	MongoDB struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
		Timeout  int    `mapstructure:"timeout"` // seconds
	} `mapstructure:"mongodb"`

	API struct {
		Port      int    `mapstructure:"port"`
		TLS       bool   `mapstructure:"tls"`
		CertFile  string `mapstructure:"cert_file"`
		KeyFile   string `mapstructure:"key_file"`
		RateLimit int    `mapstructure:"rate_limit"` // requests/second per client
	} `mapstructure:"api"`

	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		JWTSecret string `mapstructure:"jwt_secret"`
		AdminRole string `mapstructure:"admin_role"`
	} `mapstructure:"auth"`

	Engine struct {
		// DefaultWindowHours is applied when a run request omits time_window_hours.
		DefaultWindowHours float64 `mapstructure:"default_window_hours"`
		MaxSecurityEvents  int     `mapstructure:"max_security_events"`
		MaxEndpoints       int     `mapstructure:"max_endpoints"`
		MaxEndpointEvents  int     `mapstructure:"max_endpoint_events"`
		// RunTimeout bounds one correlation run end to end, in seconds.
		RunTimeout int `mapstructure:"run_timeout"`
		// MinSaveFidelity is the persistence bar for produced incidents.
		MinSaveFidelity int `mapstructure:"min_save_fidelity"`
	} `mapstructure:"engine"`

	ThreatIntel struct {
		Enabled   bool   `mapstructure:"enabled"`
		URL       string `mapstructure:"url"`
		APIKey    string `mapstructure:"api_key"`
		Timeout   int    `mapstructure:"timeout"`       // seconds
		CacheTTL  int    `mapstructure:"cache_ttl"`     // seconds
		CacheSize int    `mapstructure:"cache_size"`    // entries
		MaxBatch  int    `mapstructure:"max_batch"`     // indicators per lookup
	} `mapstructure:"threat_intel"`

	Narrative struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // seconds
		// MinFidelity gates which incidents get a generated narrative.
		MinFidelity int `mapstructure:"min_fidelity"`
	} `mapstructure:"narrative"`

	Notifications struct {
		Enabled     bool              `mapstructure:"enabled"`
		WebhookURL  string            `mapstructure:"webhook_url"`
		Headers     map[string]string `mapstructure:"headers"`
		MinSeverity string            `mapstructure:"min_severity"`
	} `mapstructure:"notifications"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// MongoTimeout returns the Mongo operation timeout as a duration.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoDB.Timeout) * time.Second
}

// RunTimeout returns the overall correlation run deadline.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Engine.RunTimeout) * time.Second
}

func setDefaults() {
	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "argus")
	viper.SetDefault("mongodb.timeout", 10)

	viper.SetDefault("api.port", 8086)
	viper.SetDefault("api.rate_limit", 5)

	viper.SetDefault("auth.enabled", true)
	viper.SetDefault("auth.admin_role", "admin")

	viper.SetDefault("engine.default_window_hours", 1.0)
	viper.SetDefault("engine.max_security_events", 500)
	viper.SetDefault("engine.max_endpoints", 200)
	viper.SetDefault("engine.max_endpoint_events", 500)
	viper.SetDefault("engine.run_timeout", 60)
	viper.SetDefault("engine.min_save_fidelity", 40)

	viper.SetDefault("threat_intel.enabled", false)
	viper.SetDefault("threat_intel.timeout", 15)
	viper.SetDefault("threat_intel.cache_ttl", 3600)
	viper.SetDefault("threat_intel.cache_size", 4096)
	viper.SetDefault("threat_intel.max_batch", 20)

	viper.SetDefault("narrative.enabled", false)
	viper.SetDefault("narrative.timeout", 30)
	viper.SetDefault("narrative.min_fidelity", 70)

	viper.SetDefault("notifications.enabled", false)
	viper.SetDefault("notifications.min_severity", "high")

	viper.SetDefault("log.level", "info")
}

// LoadConfig reads configuration from argus.yaml (working directory or
// /etc/argus) and ARGUS_* environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("argus")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/argus")

	viper.SetEnvPrefix("ARGUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration consistency at startup.
func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d", c.API.Port)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.API.TLS && (c.API.CertFile == "" || c.API.KeyFile == "") {
		return fmt.Errorf("api.cert_file and api.key_file are required when TLS is enabled")
	}
	if c.Engine.DefaultWindowHours <= 0 {
		return fmt.Errorf("engine.default_window_hours must be positive")
	}
	if c.ThreatIntel.Enabled {
		if err := validateHTTPURL("threat_intel.url", c.ThreatIntel.URL); err != nil {
			return err
		}
	}
	if c.Narrative.Enabled {
		if err := validateHTTPURL("narrative.url", c.Narrative.URL); err != nil {
			return err
		}
	}
	if c.Notifications.Enabled && c.Notifications.WebhookURL != "" {
		if err := validateHTTPURL("notifications.webhook_url", c.Notifications.WebhookURL); err != nil {
			return err
		}
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s is not a valid http(s) URL: %q", field, raw)
	}
	return nil
}
