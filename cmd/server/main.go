package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/config"
	"github.com/garyjia/delegate-desk/internal/container"
	"github.com/garyjia/delegate-desk/pkg/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file, empty for defaults")
	envFile := flag.String("env", ".env", "optional .env file loaded before reading the environment")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting delegate request desk",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("lark", cfg.LarkEnabled()),
		zap.Bool("drafting", cfg.DraftingEnabled()))

	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(version), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	// Start blocks until ctx is cancelled and the server has shut down
	if err := c.Server().Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Server exited successfully")
	return nil
}
