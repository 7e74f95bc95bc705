package config

import "time"

// Config represents the token broker host configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Auth          AuthConfig          `yaml:"auth" mapstructure:"auth"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Resilience    ResilienceConfig    `yaml:"resilience" mapstructure:"resilience"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// ServerConfig represents the local HTTP server that receives redirects
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" mapstructure:"http_port"`
	CallbackPath    string        `yaml:"callback_path" mapstructure:"callback_path"`
	OpenBrowser     bool          `yaml:"open_browser" mapstructure:"open_browser"` // launch the system browser for login and renewals
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig lets browser-hosted clients (an Electron renderer, a dev server)
// call the token API
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig represents the implicit-flow client registration.
// It is fixed for the lifetime of an engine.
type AuthConfig struct {
	Instance              string        `yaml:"instance" mapstructure:"instance"` // authority host, e.g. https://login.microsoftonline.com/
	Tenant                string        `yaml:"tenant" mapstructure:"tenant"`
	ClientID              string        `yaml:"client_id" mapstructure:"client_id"`
	RedirectURI           string        `yaml:"redirect_uri" mapstructure:"redirect_uri"`
	PostLogoutRedirectURI string        `yaml:"post_logout_redirect_uri" mapstructure:"post_logout_redirect_uri"`
	ExtraQueryParameter   string        `yaml:"extra_query_parameter" mapstructure:"extra_query_parameter"` // appended verbatim, e.g. prompt=login
	LoginResource         string        `yaml:"login_resource" mapstructure:"login_resource"`
	CorrelationID         string        `yaml:"correlation_id" mapstructure:"correlation_id"`
	Slice                 string        `yaml:"slice" mapstructure:"slice"`
	ExpireOffset          time.Duration `yaml:"expire_offset" mapstructure:"expire_offset"`
	RenewTimeout          time.Duration `yaml:"renew_timeout" mapstructure:"renew_timeout"`
}

// StoreConfig represents the token store backend
type StoreConfig struct {
	Type      string           `yaml:"type" mapstructure:"type"` // memory | redis
	KeyPrefix string           `yaml:"key_prefix" mapstructure:"key_prefix"`
	Redis     RedisStoreConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisStoreConfig represents Redis connection settings
type RedisStoreConfig struct {
	Addresses  []string      `yaml:"addresses" mapstructure:"addresses"`
	Password   string        `yaml:"password" mapstructure:"password"`
	DB         int           `yaml:"db" mapstructure:"db"`
	MasterName string        `yaml:"master_name" mapstructure:"master_name"`
	KeyPrefix  string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ResilienceConfig represents resilience settings
type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `yaml:"rate_limit" mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// RateLimitConfig limits how often clients may hit the API
type RateLimitConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	Rate         string   `yaml:"rate" mapstructure:"rate"` // requests-period, e.g. 60-M
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	Headers      bool     `yaml:"headers" mapstructure:"headers"` // emit X-RateLimit-* headers
}

// CircuitBreakerConfig guards browser launches
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	MaxRequests      uint32        `yaml:"max_requests" mapstructure:"max_requests"` // allowed while half-open
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`           // open period before half-open
}

// ObservabilityConfig represents metrics and probe endpoints
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Health  HealthConfig  `yaml:"health" mapstructure:"health"`
	Ready   ReadyConfig   `yaml:"ready" mapstructure:"ready"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ReadyConfig represents readiness check configuration
type ReadyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`             // debug, info, warn, error
	Format      string `yaml:"format" mapstructure:"format"`           // json, console
	Development bool   `yaml:"development" mapstructure:"development"` // Enable development mode
}
