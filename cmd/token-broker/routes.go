package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/handler"
	"github.com/shoatman/electron-ng2seed/internal/schema"
	"github.com/shoatman/electron-ng2seed/internal/service/metrics"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
	"github.com/shoatman/electron-ng2seed/pkg/resilience/ratelimit"
)

// RouterDeps contains dependencies for router setup.
type RouterDeps struct {
	Config        *config.Config
	Metrics       *metrics.Metrics
	Store         storage.Store
	BrokerHandler *handler.BrokerHandler
	HealthHandler *handler.HealthHandler
}

// SetupRouter creates and configures chi router with all middleware and routes.
func SetupRouter(deps *RouterDeps) chi.Router {
	r := chi.NewRouter()

	applyGlobalMiddleware(r, deps)

	registerCallbackRoutes(r, deps)
	registerAPIRoutes(r, deps)
	registerHealthRoutes(r, deps)
	registerMetricsRoutes(r, deps)
	registerAdminRoutes(r, deps)

	return r
}

// applyGlobalMiddleware applies middleware stack to router.
func applyGlobalMiddleware(r chi.Router, deps *RouterDeps) {
	cfg := deps.Config

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(logger.RequestLogger)
	r.Use(logger.RecoveryLogger)
	r.Use(chimw.CleanPath)
	r.Use(deps.Metrics.Middleware)

	// Rate limiting
	if cfg.Resilience.RateLimit.Enabled {
		limiter := createRateLimiter(cfg)
		if limiter != nil {
			r.Use(limiter.Middleware)
			logger.Info("rate limiting enabled", zap.String("rate", cfg.Resilience.RateLimit.Rate))
		}
	}

	// CORS
	if cfg.Server.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", ratelimit.HeaderLimit, ratelimit.HeaderRemaining, ratelimit.HeaderReset},
			MaxAge:         300,
		}))
	}
}

// createRateLimiter creates rate limiter from config.
func createRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		Rate:         cfg.Resilience.RateLimit.Rate,
		ExcludePaths: cfg.Resilience.RateLimit.ExcludePaths,
		Headers:      cfg.Resilience.RateLimit.Headers,
	})
	if err != nil {
		logger.Error("failed to create rate limiter", zap.Error(err))
		return nil
	}
	return limiter
}

// registerCallbackRoutes registers the redirect target and the interactive
// login routes.
func registerCallbackRoutes(r chi.Router, deps *RouterDeps) {
	h := deps.BrokerHandler
	callbackPath := deps.Config.Server.CallbackPath

	r.Group(func(r chi.Router) {
		r.Get(callbackPath, h.HandleCallbackPage)
		r.Post(callbackPath, h.HandleCallback)
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
	})
}

// registerAPIRoutes registers the token API.
func registerAPIRoutes(r chi.Router, deps *RouterDeps) {
	h := deps.BrokerHandler

	r.Route("/api", func(r chi.Router) {
		r.Get("/token", h.HandleToken)
		r.Get("/user", h.HandleUser)
		r.Get("/login-error", h.HandleLoginStatus)
		r.Delete("/cache", h.HandleClearCache)
		r.Delete("/cache/{resource}", h.HandleClearResource)
	})
}

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(r chi.Router, deps *RouterDeps) {
	r.Get(deps.Config.Observability.Health.Path, deps.HealthHandler.HandleHealth)
	r.Get(deps.Config.Observability.Ready.Path, deps.HealthHandler.HandleReady)
}

// registerMetricsRoutes registers metrics endpoint if enabled.
func registerMetricsRoutes(r chi.Router, deps *RouterDeps) {
	if deps.Config.Observability.Metrics.Enabled {
		metricsPath := deps.Config.Observability.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Handle(metricsPath, deps.Metrics.Handler())
	}
}

// registerAdminRoutes registers admin endpoints.
func registerAdminRoutes(r chi.Router, deps *RouterDeps) {
	cfg := deps.Config

	r.Route("/admin", func(r chi.Router) {
		r.Get("/schema", handleSchema)

		// Dev mode only endpoints
		if cfg.Log.Development {
			r.Handle("/log/level", logger.LevelHandler())
			r.Get("/info", makeInfoHandler(cfg))
		}
	})
}

// handleSchema returns JSON schema for config.
func handleSchema(w http.ResponseWriter, _ *http.Request) {
	gen := schema.NewGenerator()
	data, err := gen.Generate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// makeInfoHandler creates a handler that returns app info.
func makeInfoHandler(cfg *config.Config) http.HandlerFunc {
	environment := "production"
	if cfg.Log.Development {
		environment = "development"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		info := map[string]interface{}{
			"version":     Version,
			"build_time":  BuildTime,
			"environment": environment,
			"client_id":   cfg.Auth.ClientID,
			"tenant":      cfg.Auth.Tenant,
			"store":       cfg.Store.Type,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	}
}
