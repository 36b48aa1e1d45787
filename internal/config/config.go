// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior. TrustProxy should be set
// only when the service runs behind a proxy that strips client-supplied
// X-Forwarded-For headers; it controls whether rate limiting keys on
// that header or on the peer address.
type ServerConfig struct {
	Port       int  `mapstructure:"port"`
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// DatabaseConfig selects and configures the scan store.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
}

// RateLimitConfig governs the per-client sliding window.
type RateLimitConfig struct {
	WindowMinutes int `mapstructure:"window_minutes"`
	Capacity      int `mapstructure:"capacity"`
}

// FetchConfig bounds outbound document fetches.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyMB      int    `mapstructure:"max_body_mb"`
	MaxRedirects   int    `mapstructure:"max_redirects"`
	UserAgent      string `mapstructure:"user_agent"`
	AllowPrivate   bool   `mapstructure:"allow_private"`
}

// CORSConfig lists origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBSHEPHERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.path", "webshepherd.db")
	v.SetDefault("rate_limit.window_minutes", 60)
	v.SetDefault("rate_limit.capacity", 10)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.max_body_mb", 5)
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.user_agent", "WebShepherd/1.0 (WCAG Accessibility Checker; +https://webshepherd.dev)")
	v.SetDefault("fetch.allow_private", false)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:8000"})
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Database.Provider {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	if c.RateLimit.WindowMinutes <= 0 {
		return fmt.Errorf("rate_limit.window_minutes must be > 0")
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rate_limit.capacity must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxBodyMB <= 0 {
		return fmt.Errorf("fetch.max_body_mb must be > 0")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0")
	}
	return nil
}

// FetchTimeout returns the fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// MaxBodyBytes returns the fetch size cap in bytes.
func (c Config) MaxBodyBytes() int64 {
	return int64(c.Fetch.MaxBodyMB) << 20
}

// RateLimitWindow returns the sliding window as a duration.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}
