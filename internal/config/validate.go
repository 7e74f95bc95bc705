package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateResilience(&cfg.Resilience)...)

	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.http_port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.HTTPPort),
		})
	}
	if !strings.HasPrefix(cfg.Server.CallbackPath, "/") {
		errs = append(errs, ValidationError{Field: "server.callback_path", Message: "must start with '/'"})
	}
	if cfg.Server.CORS.Enabled && len(cfg.Server.CORS.AllowedOrigins) == 0 {
		errs = append(errs, ValidationError{
			Field:   "server.cors.allowed_origins",
			Message: "at least one origin required when cors is enabled",
		})
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got '%s'", cfg.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAuth(auth *AuthConfig) ValidationErrors {
	var errs ValidationErrors

	if auth.ClientID == "" {
		errs = append(errs, ValidationError{Field: "auth.client_id", Message: "required"})
	}

	if err := validateAbsoluteURL(auth.Instance); err != nil {
		errs = append(errs, ValidationError{Field: "auth.instance", Message: err.Error()})
	}
	if err := validateAbsoluteURL(auth.RedirectURI); err != nil {
		errs = append(errs, ValidationError{Field: "auth.redirect_uri", Message: err.Error()})
	}
	if auth.PostLogoutRedirectURI != "" {
		if err := validateAbsoluteURL(auth.PostLogoutRedirectURI); err != nil {
			errs = append(errs, ValidationError{Field: "auth.post_logout_redirect_uri", Message: err.Error()})
		}
	}

	if strings.ContainsAny(auth.Tenant, "/?#") {
		errs = append(errs, ValidationError{Field: "auth.tenant", Message: "must not contain '/', '?' or '#'"})
	}
	if auth.ExpireOffset < 0 {
		errs = append(errs, ValidationError{Field: "auth.expire_offset", Message: "must not be negative"})
	}
	if auth.RenewTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "auth.renew_timeout", Message: "must be positive"})
	}

	return errs
}

func validateStore(store *StoreConfig) ValidationErrors {
	var errs ValidationErrors

	switch store.Type {
	case "memory":
	case "redis":
		if len(store.Redis.Addresses) == 0 {
			errs = append(errs, ValidationError{
				Field:   "store.redis.addresses",
				Message: "at least one address required when store.type is 'redis'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "store.type",
			Message: fmt.Sprintf("must be 'memory' or 'redis', got '%s'", store.Type),
		})
	}

	return errs
}

func validateResilience(res *ResilienceConfig) ValidationErrors {
	var errs ValidationErrors

	if res.RateLimit.Enabled && !validRate(res.RateLimit.Rate) {
		errs = append(errs, ValidationError{
			Field:   "resilience.rate_limit.rate",
			Message: fmt.Sprintf("must look like '<count>-<S|M|H|D>', got '%s'", res.RateLimit.Rate),
		})
	}

	if res.CircuitBreaker.Enabled && res.CircuitBreaker.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "resilience.circuit_breaker.timeout", Message: "must be positive"})
	}

	return errs
}

func validRate(rate string) bool {
	count, period, ok := strings.Cut(rate, "-")
	if !ok {
		return false
	}
	if n, err := strconv.ParseInt(count, 10, 64); err != nil || n <= 0 {
		return false
	}
	switch strings.ToUpper(period) {
	case "S", "M", "H", "D":
		return true
	default:
		return false
	}
}

func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL, got '%s'", raw)
	}
	return nil
}
