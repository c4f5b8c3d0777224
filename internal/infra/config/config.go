// Package config loads MoltNet's runtime configuration from YAML and
// environment variables using Viper, following the same layered-default
// pattern the wider corpus uses for its services.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig `mapstructure:"cors"`
}

func (s ServerConfig) ReadTimeoutDuration() time.Duration     { return time.Duration(s.ReadTimeout) * time.Second }
func (s ServerConfig) WriteTimeoutDuration() time.Duration    { return time.Duration(s.WriteTimeout) * time.Second }
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration { return time.Duration(s.ShutdownTimeout) * time.Second }

// CORSConfig lists the origins and headers the HTTP surface allows.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// DatabaseConfig configures the pgx connection pool.
type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"ssl_mode"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
	MinPoolSize int    `mapstructure:"min_pool_size"`
	MaxIdleTime int    `mapstructure:"max_idle_time"`
	// URL, if set (via DATABASE_URL), takes precedence over the discrete
	// fields above.
	URL string `mapstructure:"url"`
}

func (d DatabaseConfig) MaxIdleTimeDuration() time.Duration {
	return time.Duration(d.MaxIdleTime) * time.Second
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// AuthConfig configures the token validator, backing both the JWKS-based
// JWT verifier and the opaque-token introspection client.
type AuthConfig struct {
	JWKSURL               string `mapstructure:"jwks_url"`
	Issuer                string `mapstructure:"issuer"`
	JWKSCacheTTLSeconds   int    `mapstructure:"jwks_cache_ttl_seconds"`
	IntrospectionURL      string `mapstructure:"introspection_url"`
	IntrospectionClientID string `mapstructure:"introspection_client_id"`
	IntrospectionSecret   string `mapstructure:"introspection_client_secret"`
}

func (a AuthConfig) JWKSCacheTTL() time.Duration {
	if a.JWKSCacheTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(a.JWKSCacheTTLSeconds) * time.Second
}

// IdentityConfig points at the external identity store's admin API.
type IdentityConfig struct {
	AdminURL     string `mapstructure:"admin_url"`
	ActionAPIKey string `mapstructure:"action_api_key"`
}

// OAuthConfig points at the external authorization server.
type OAuthConfig struct {
	AdminURL  string `mapstructure:"admin_url"`
	PublicURL string `mapstructure:"public_url"`
}

// PolicyConfig points at the external relationship/policy engine.
type PolicyConfig struct {
	ReadURL  string `mapstructure:"read_url"`
	WriteURL string `mapstructure:"write_url"`
}

// RecoveryConfig configures the HMAC-bound recovery protocol.
type RecoveryConfig struct {
	ChallengeSecret string `mapstructure:"challenge_secret"`
}

// EmbeddingConfig points at the process-external embedding model.
type EmbeddingConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Dimensions int    `mapstructure:"dimensions"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

func (e EmbeddingConfig) Timeout() time.Duration {
	if e.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.TimeoutSec) * time.Second
}

// SchedulerConfig configures the background sweep jobs.
type SchedulerConfig struct {
	Enabled                       bool `mapstructure:"enabled"`
	SigningExpirySweepSeconds     int  `mapstructure:"signing_expiry_sweep_seconds"`
	NoncePruneIntervalSeconds     int  `mapstructure:"nonce_prune_interval_seconds"`
}

func (s SchedulerConfig) SigningExpirySweepInterval() time.Duration {
	return time.Duration(s.SigningExpirySweepSeconds) * time.Second
}

func (s SchedulerConfig) NoncePruneInterval() time.Duration {
	return time.Duration(s.NoncePruneIntervalSeconds) * time.Second
}

// RateLimitConfig configures per-route request buckets.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// Config is the root configuration object.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Identity    IdentityConfig  `mapstructure:"identity"`
	OAuth       OAuthConfig     `mapstructure:"oauth"`
	Policy      PolicyConfig    `mapstructure:"policy"`
	Recovery    RecoveryConfig  `mapstructure:"recovery"`
	Embedding   EmbeddingConfig `mapstructure:"embedding"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// Load reads configuration from YAML files and environment variables.
// Environment variables take precedence over YAML values.
// Env prefix: MOLTNET_ (e.g. MOLTNET_SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./settings")
	v.AddConfigPath("../settings")
	v.AddConfigPath("../../settings")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOLTNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyStandaloneEnvOverrides(&cfg)

	if cfg.Server.Port == "" {
		if p := os.Getenv("PORT"); p != "" {
			cfg.Server.Port = p
		}
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
// Environment variables still apply as overrides.
func LoadFromFile(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)
	v.SetEnvPrefix("MOLTNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyStandaloneEnvOverrides(&cfg)
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "moltnet")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_pool_size", 10)
	v.SetDefault("database.min_pool_size", 2)
	v.SetDefault("database.max_idle_time", 300)

	v.SetDefault("auth.jwks_cache_ttl_seconds", 600)

	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.timeout_seconds", 10)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.signing_expiry_sweep_seconds", 30)
	v.SetDefault("scheduler.nonce_prune_interval_seconds", 300)

	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 30)

	v.SetDefault("environment", "development")
}

// applyStandaloneEnvOverrides applies the handful of env vars operators
// expect as bare (unprefixed) variables rather than MOLTNET_-prefixed ones.
// Viper's AutomaticEnv does not reliably propagate nested keys that don't
// share the configured prefix, so these are read explicitly.
func applyStandaloneEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("RECOVERY_CHALLENGE_SECRET"); v != "" {
		cfg.Recovery.ChallengeSecret = v
	}
	if v := os.Getenv("ORY_ACTION_API_KEY"); v != "" {
		cfg.Identity.ActionAPIKey = v
	}
}

// MustLoad loads configuration and panics on error. Use only in main() or
// initialization code.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}
