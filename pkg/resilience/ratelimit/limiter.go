// Package ratelimit provides HTTP rate limiting middleware using ulule/limiter.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

// Rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Config holds rate limiting configuration.
type Config struct {
	// Rate is the rate limit in format 'requests-period' (e.g. '60-M' for 60 requests per minute)
	Rate string
	// ExcludePaths are path prefixes that are never limited
	ExcludePaths []string
	// Headers adds X-RateLimit-* headers to every limited response
	Headers bool
}

// DefaultConfig returns default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Rate:         "60-M",
		ExcludePaths: []string{"/health", "/ready", "/metrics"},
		Headers:      true,
	}
}

// Limiter wraps the ulule/limiter with configuration.
// Clients are keyed by remote IP: the broker listens on a local port and is
// not expected to sit behind a proxy.
type Limiter struct {
	cfg      Config
	instance *limiter.Limiter
}

// NewLimiter creates a new rate limiter backed by an in-memory store.
func NewLimiter(cfg Config) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		cfg:      cfg,
		instance: limiter.New(memory.NewStore(), rate),
	}, nil
}

// Middleware returns an HTTP middleware that applies rate limiting.
// Limiter errors deny the request.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.isExcluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		clientKey := clientIP(r)
		limitContext, err := l.instance.Get(r.Context(), clientKey)
		if err != nil {
			logger.FromContext(r.Context()).Error("rate limiter error", zap.Error(err))
			http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		if l.cfg.Headers {
			w.Header().Set(HeaderLimit, strconv.FormatInt(limitContext.Limit, 10))
			w.Header().Set(HeaderRemaining, strconv.FormatInt(limitContext.Remaining, 10))
			w.Header().Set(HeaderReset, strconv.FormatInt(limitContext.Reset, 10))
		}

		if limitContext.Reached {
			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				zap.String("client_key", clientKey),
				zap.String("path", r.URL.Path),
				zap.Int64("limit", limitContext.Limit),
			)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *Limiter) isExcluded(path string) bool {
	for _, excluded := range l.cfg.ExcludePaths {
		if strings.HasPrefix(path, excluded) {
			return true
		}
	}
	return false
}
