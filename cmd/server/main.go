package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"
	"github.com/toolsascode/restorm/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return 2
	}

	closeLog, err := logger.Setup(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		AppName:    cfg.App.Slug,
		FileEnable: cfg.Logger.FileEnabled,
		LogsDir:    cfg.App.LogsDir,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		logger.Errorf("Failed to set up logger: %v", err)
		return 2
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("Initializing %s server (env: %s)...", cfg.App.Name, cfg.Env)

	app, err := server.New(ctx, cfg)
	if err != nil {
		logger.Errorf("Failed to initialize server: %v", err)
		return 2
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warnf("Failed to close resources: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.Errorf("Server stopped: %v", err)
		return 2
	}
	return 0
}
