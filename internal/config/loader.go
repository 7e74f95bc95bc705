package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for automatic environment overrides
const EnvPrefix = "TOKEN_BROKER"

// Load loads configuration from a YAML file.
// Any key can be overridden with TOKEN_BROKER_<SECTION>_<KEY>; the most
// common settings also have short aliases (see bindEnvVars).
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

// LoadFromString loads configuration from YAML text
func LoadFromString(content string) (*Config, error) {
	v := newViper()

	if err := v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return unmarshal(v)
}

// LoadFromEnv builds configuration from defaults and environment only
func LoadFromEnv() (*Config, error) {
	return unmarshal(newViper())
}

// Marshal renders cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// bindEnvVars binds short environment variable names to config keys.
func bindEnvVars(v *viper.Viper) {
	// Client registration
	_ = v.BindEnv("auth.client_id", "TB_CLIENT_ID")
	_ = v.BindEnv("auth.tenant", "TB_TENANT")
	_ = v.BindEnv("auth.instance", "TB_INSTANCE")
	_ = v.BindEnv("auth.redirect_uri", "TB_REDIRECT_URI")
	_ = v.BindEnv("auth.post_logout_redirect_uri", "TB_POST_LOGOUT_REDIRECT_URI")

	// Store
	_ = v.BindEnv("store.type", "TB_STORE")
	_ = v.BindEnv("store.redis.password", "REDIS_PASSWORD")

	// Server
	_ = v.BindEnv("server.http_port", "HTTP_PORT")

	// Logging
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.development", "DEV_MODE")
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.callback_path", "/callback")
	v.SetDefault("server.open_browser", true)
	v.SetDefault("server.shutdown_timeout", "10s")

	// Auth defaults
	v.SetDefault("auth.instance", "https://login.microsoftonline.com/")
	v.SetDefault("auth.tenant", "common")
	v.SetDefault("auth.expire_offset", "120s")
	v.SetDefault("auth.renew_timeout", "6s")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.key_prefix", "adal.")
	v.SetDefault("store.redis.key_prefix", "tokenbroker:")
	v.SetDefault("store.redis.timeout", "5s")

	// Resilience defaults
	v.SetDefault("resilience.rate_limit.enabled", true)
	v.SetDefault("resilience.rate_limit.rate", "60-M")
	v.SetDefault("resilience.rate_limit.exclude_paths", []string{"/health", "/ready", "/metrics"})
	v.SetDefault("resilience.rate_limit.headers", true)
	v.SetDefault("resilience.circuit_breaker.enabled", true)
	v.SetDefault("resilience.circuit_breaker.failure_threshold", 3)
	v.SetDefault("resilience.circuit_breaker.max_requests", 1)
	v.SetDefault("resilience.circuit_breaker.timeout", "30s")

	// Observability defaults
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("observability.health.path", "/health")
	v.SetDefault("observability.ready.path", "/ready")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.development", false)
}

// applyDefaults fills values that viper leaves empty, e.g. when a section
// is present in the file but a key inside it is blank.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.CallbackPath == "" {
		cfg.Server.CallbackPath = "/callback"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Auth.Instance == "" {
		cfg.Auth.Instance = "https://login.microsoftonline.com/"
	}
	if cfg.Auth.Tenant == "" {
		cfg.Auth.Tenant = "common"
	}
	if cfg.Auth.ExpireOffset == 0 {
		cfg.Auth.ExpireOffset = 120 * time.Second
	}
	if cfg.Auth.RenewTimeout == 0 {
		cfg.Auth.RenewTimeout = 6 * time.Second
	}
	if cfg.Auth.RedirectURI == "" {
		cfg.Auth.RedirectURI = fmt.Sprintf("http://localhost:%d%s", cfg.Server.HTTPPort, cfg.Server.CallbackPath)
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.KeyPrefix == "" {
		cfg.Store.KeyPrefix = "adal."
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = "tokenbroker:"
	}
	if cfg.Store.Redis.Timeout == 0 {
		cfg.Store.Redis.Timeout = 5 * time.Second
	}

	if cfg.Resilience.RateLimit.Rate == "" {
		cfg.Resilience.RateLimit.Rate = "60-M"
	}
	if cfg.Resilience.RateLimit.ExcludePaths == nil {
		cfg.Resilience.RateLimit.ExcludePaths = []string{"/health", "/ready", "/metrics"}
	}
	if cfg.Resilience.CircuitBreaker.FailureThreshold == 0 {
		cfg.Resilience.CircuitBreaker.FailureThreshold = 3
	}
	if cfg.Resilience.CircuitBreaker.MaxRequests == 0 {
		cfg.Resilience.CircuitBreaker.MaxRequests = 1
	}
	if cfg.Resilience.CircuitBreaker.Timeout == 0 {
		cfg.Resilience.CircuitBreaker.Timeout = 30 * time.Second
	}

	if cfg.Observability.Metrics.Path == "" {
		cfg.Observability.Metrics.Path = "/metrics"
	}
	if cfg.Observability.Health.Path == "" {
		cfg.Observability.Health.Path = "/health"
	}
	if cfg.Observability.Ready.Path == "" {
		cfg.Observability.Ready.Path = "/ready"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
