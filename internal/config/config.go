package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// State store backend types.
const (
	StateStoreMemory = "memory"
	StateStoreRedis  = "redis"
)

// DefaultStateTTL is how long an issued OAuth state token stays valid.
const DefaultStateTTL = 300 * time.Second

// ErrMissingOAuthConfig indicates the Google OAuth client is not fully
// configured. This is fatal and not retryable.
var ErrMissingOAuthConfig = errors.New("missing required Google OAuth configuration")

// Config holds the full application configuration.
type Config struct {
	// HTTPAddr is the bind address for the API server.
	HTTPAddr string `mapstructure:"http_addr"`

	// MetricsAddr is the bind address for the metrics server.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`

	Google     GoogleConfig     `mapstructure:"google"`
	StateStore StateStoreConfig `mapstructure:"state_store"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// GoogleConfig holds the Google OAuth client settings.
type GoogleConfig struct {
	// ClientID is the OAuth 2.0 client id from the Google Cloud console.
	ClientID string `mapstructure:"client_id"`

	// ClientSecret is the OAuth 2.0 client secret.
	ClientSecret string `mapstructure:"client_secret"`

	// RedirectURL is where Google redirects after the user grants consent,
	// e.g. http://localhost:8080/api/auth/google/callback.
	RedirectURL string `mapstructure:"redirect_url"`

	// Scopes are the OAuth scopes requested during authorization.
	Scopes []string `mapstructure:"scopes"`
}

// StateStoreConfig selects and configures the ephemeral state store backend.
type StateStoreConfig struct {
	// Type is "memory" or "redis".
	Type string `mapstructure:"type"`

	// TTL bounds the lifetime of issued state tokens.
	TTL time.Duration `mapstructure:"ttl"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the redis state store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig holds the account store settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path. An empty path selects the
	// in-memory store (development and tests only).
	Path string `mapstructure:"path"`
}

// Load reads configuration from the environment, an optional .env file and
// an optional config file, and validates it.
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("debug", false)
	v.SetDefault("google.scopes", []string{
		"https://www.googleapis.com/auth/gmail.readonly",
	})
	v.SetDefault("state_store.type", StateStoreMemory)
	v.SetDefault("state_store.ttl", DefaultStateTTL)
	v.SetDefault("state_store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("state_store.redis.db", 0)
	v.SetDefault("database.path", "inboxlink.db")

	v.SetEnvPrefix("INBOXLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names used by earlier deployments.
	_ = v.BindEnv("google.client_id", "INBOXLINK_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google.client_secret", "INBOXLINK_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
	_ = v.BindEnv("google.redirect_url", "INBOXLINK_GOOGLE_REDIRECT_URL", "GOOGLE_REDIRECT_URI")

	v.SetConfigName("inboxlink")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/inboxlink")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values that must be present or
// well-formed before the server starts.
func (c *Config) Validate() error {
	if err := c.Google.Validate(); err != nil {
		return err
	}

	switch c.StateStore.Type {
	case StateStoreMemory, StateStoreRedis:
	default:
		return fmt.Errorf("invalid state store type %q, must be %q or %q",
			c.StateStore.Type, StateStoreMemory, StateStoreRedis)
	}

	if c.StateStore.TTL <= 0 {
		return fmt.Errorf("state store TTL must be positive, got %s", c.StateStore.TTL)
	}

	return nil
}

// Validate checks that the mandatory OAuth client fields are present.
func (g *GoogleConfig) Validate() error {
	var missing []string
	if g.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if g.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if g.RedirectURL == "" {
		missing = append(missing, "redirect_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingOAuthConfig, strings.Join(missing, ", "))
	}
	return nil
}
