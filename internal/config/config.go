package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Log      LogConfig
	Provider ProviderConfig
	Breaker  BreakerConfig
	Sync     SyncConfig
	Redis    RedisConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// HTTPConfig holds API listener settings.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds the shared secret used to verify caller tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level       string
	Format      string
	Development bool
}

// ProviderConfig selects and configures the bank feed.
type ProviderConfig struct {
	Mode    string        `mapstructure:"mode"` // simulated | http
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerConfig tunes the circuit breaker around the bank feed.
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// SyncConfig controls the background sync job.
type SyncConfig struct {
	Enabled  bool
	Schedule string
}

// RedisConfig holds event publisher settings. An empty Addr disables publishing.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Load reads configuration from file and env. Env var overrides use prefix VERMIETER_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "vermieter", "vermieter.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("provider.mode", "simulated")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", 20*time.Second)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.schedule", "@every 6h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "bank_events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "vermieter")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("VERMIETER_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "vermieter"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("VERMIETER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.Provider.Mode {
	case "simulated":
	case "http":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("config: provider.base_url required for http mode")
		}
	default:
		return fmt.Errorf("config: unknown provider.mode %q", c.Provider.Mode)
	}
	return nil
}
