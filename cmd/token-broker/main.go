package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/service/metrics"
	"github.com/shoatman/electron-ng2seed/pkg/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application entry point with proper error handling.
func run() error {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	opts := parseFlags()

	if handled := handleInfoCommands(opts); handled {
		return nil
	}

	if err := initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if opts.printConfig {
		cfg, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		return printConfig(cfg)
	}

	cfg, err := loadAndValidateConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger.Info("starting token-broker",
		zap.String("version", Version),
		zap.String("client_id", cfg.Auth.ClientID),
		zap.String("store", cfg.Store.Type),
	)

	return runServer(cfg)
}

// initLogger initializes the logger with appropriate settings.
func initLogger() error {
	logCfg := logger.DefaultConfig()
	if os.Getenv("DEV_MODE") == "true" {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	return logger.Init(logCfg)
}

// loadConfig loads configuration. Without a path, configuration comes from
// defaults and environment only.
func loadConfig(configPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load configuration",
			zap.Error(err),
			zap.String("path", configPath),
		)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// loadAndValidateConfig loads and validates configuration.
func loadAndValidateConfig(configPath string) (*config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn("ignoring invalid log level", zap.String("level", cfg.Log.Level))
	}

	logger.Info("configuration loaded",
		zap.String("path", configPath),
		zap.String("tenant", cfg.Auth.Tenant),
		zap.String("redirect_uri", cfg.Auth.RedirectURI),
	)

	if err := config.Validate(cfg); err != nil {
		logger.Error("configuration validation failed", zap.Error(err))
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// printConfig writes the effective configuration to stdout.
func printConfig(cfg *config.Config) error {
	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(cfg *config.Config) error {
	m := metrics.New()

	srv, deps, err := NewServer(cfg, m)
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	go startHTTPServer(srv, cfg.Server.HTTPPort)

	time.AfterFunc(1*time.Second, func() {
		deps.HealthHandler.SetReady(true)
		logger.Info("service is ready")
	})

	waitForShutdown(srv, deps, cfg.Server.ShutdownTimeout)

	return nil
}
