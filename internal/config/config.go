package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration. It is built once at startup and
// passed explicitly into constructors so tests can inject their own values
// without touching shared state.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Mongo   Mongo   `mapstructure:"mongo"`
	Auth    Auth    `mapstructure:"auth"`
	Storage Storage `mapstructure:"storage"`
	Logger  Logger  `mapstructure:"logger"`
}

type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type Mongo struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type Auth struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`

	// DenylistRetention is how long a revoked refresh token is kept in the
	// denylist before its TTL index purges it.
	DenylistRetention time.Duration `mapstructure:"denylist_retention"`

	CookieName string `mapstructure:"cookie_name"`
}

type Storage struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
}

type Logger struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the DEALDESK_ prefix with underscores, e.g.
// DEALDESK_AUTH_REFRESH_SECRET overrides auth.refresh_secret.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DEALDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}

// Validate checks the invariants the rest of the system relies on. Signing
// secrets are required; a denylist retention shorter than the refresh token
// lifetime is reported by the caller as a warning, not rejected here.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("config: auth.access_secret is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("config: auth.refresh_secret is required")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("config: mongo.uri is required")
	}
	return nil
}

// RetentionCoversRefresh reports whether revoked refresh tokens stay
// denylisted for their full validity window.
func (c *Config) RetentionCoversRefresh() bool {
	return c.Auth.DenylistRetention >= c.Auth.RefreshTTL
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_interval", time.Minute)

	// Empty defaults register the keys so environment-only values are
	// picked up by Unmarshal.
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "dealdesk")

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.denylist_retention", 2*24*time.Hour)
	v.SetDefault("auth.cookie_name", "refreshToken")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "dealdesk-documents")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)
}
