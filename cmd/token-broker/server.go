package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/handler"
	"github.com/shoatman/electron-ng2seed/internal/model"
	"github.com/shoatman/electron-ng2seed/internal/service/authctx"
	"github.com/shoatman/electron-ng2seed/internal/service/frame"
	"github.com/shoatman/electron-ng2seed/internal/service/metrics"
	"github.com/shoatman/electron-ng2seed/internal/service/storage"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
	"github.com/shoatman/electron-ng2seed/pkg/resilience/circuitbreaker"
)

// NewServer creates a new HTTP server with chi router and all handlers.
func NewServer(cfg *config.Config, m *metrics.Metrics) (*http.Server, *RouterDeps, error) {
	deps, err := createDependencies(cfg, m)
	if err != nil {
		return nil, nil, err
	}

	router := SetupRouter(deps)

	return &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Auth.RenewTimeout + 15*time.Second, // token requests may wait for a renewal
		IdleTimeout:       60 * time.Second,
	}, deps, nil
}

// createDependencies initializes all server dependencies.
func createDependencies(cfg *config.Config, m *metrics.Metrics) (*RouterDeps, error) {
	store, err := createStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	logger.Info("token store created", zap.String("type", store.Name()))

	launcher := createLauncher(cfg)

	engine, err := authctx.New(cfg.Auth, store,
		authctx.WithLogger(logger.Named("authctx")),
		authctx.WithFrameBroker(launcher),
		authctx.WithNavigator(launcher),
		authctx.WithRecorder(m),
		authctx.WithKeyPrefix(cfg.Store.KeyPrefix),
		authctx.WithRandom(rand.Reader),
		authctx.WithLoginHandler(logLoginResult),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create authentication context: %w", err)
	}

	healthHandler := handler.NewHealthHandler(Version)
	if p, ok := store.(storage.Pinger); ok {
		healthHandler.AddCheck("store", p.Ping)
	}

	return &RouterDeps{
		Config:        cfg,
		Metrics:       m,
		Store:         store,
		BrokerHandler: handler.NewBrokerHandler(engine),
		HealthHandler: healthHandler,
	}, nil
}

// createStore creates a token store based on configuration.
func createStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Type {
	case "redis":
		return storage.NewRedisStore(storage.RedisConfig{
			Addresses:  cfg.Store.Redis.Addresses,
			Password:   cfg.Store.Redis.Password,
			DB:         cfg.Store.Redis.DB,
			MasterName: cfg.Store.Redis.MasterName,
			KeyPrefix:  cfg.Store.Redis.KeyPrefix,
			Timeout:    cfg.Store.Redis.Timeout,
		})

	case "memory", "":
		return storage.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}

// createLauncher builds the browser launcher used for logins and silent
// renewals, guarded by a circuit breaker when enabled.
func createLauncher(cfg *config.Config) frame.Launcher {
	var launcher frame.Launcher = urlLogger{}
	if cfg.Server.OpenBrowser {
		launcher = frame.NewBrowser(frame.WithLogger(logger.Named("browser")))
	}

	cb := cfg.Resilience.CircuitBreaker
	if !cb.Enabled {
		return launcher
	}
	manager := circuitbreaker.NewManager(circuitbreaker.Settings{
		FailureThreshold: cb.FailureThreshold,
		MaxRequests:      cb.MaxRequests,
		Timeout:          cb.Timeout,
	}, logger.Named("circuitbreaker"))
	logger.Info("browser launch circuit breaker enabled",
		zap.Uint32("failure_threshold", cb.FailureThreshold),
		zap.Duration("timeout", cb.Timeout),
	)
	return frame.NewGuard(launcher, manager)
}

// urlLogger prints authorization URLs instead of opening a browser.
type urlLogger struct{}

func (urlLogger) Open(url string) error {
	logger.Info("open this URL to renew the token", zap.String("url", url))
	return nil
}

func (urlLogger) Navigate(url string) error {
	logger.Info("open this URL to continue", zap.String("url", url))
	return nil
}

func logLoginResult(result model.TokenResult) {
	if result.Err != nil {
		logger.Warn("interactive login failed", zap.Error(result.Err))
		return
	}
	logger.Info("interactive login completed", logger.Token("id_token", result.Token))
}

// startHTTPServer starts HTTP server and handles errors.
func startHTTPServer(srv *http.Server, port int) {
	logger.Info("starting HTTP server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown.
func waitForShutdown(srv *http.Server, deps *RouterDeps, timeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	deps.HealthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	if err := deps.Store.Close(); err != nil {
		logger.Error("token store close error", zap.Error(err))
	}

	logger.Info("server stopped")
}
