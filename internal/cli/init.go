// Package cli holds the bootstrap steps shared by cmd/payminder and
// cmd/payminder-notifier, plus the terminal rendering used by the CLI.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"payminder/internal/config"
	"payminder/internal/log"
	"payminder/internal/storage"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at LOG_LEVEL (default info),
// writing text lines to w. It also becomes the slog default so third-party
// code logs through the same handler.
func SetupLogger(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads the configuration and rejects invalid
// settings.
func LoadAndValidateConfig(logger *log.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		return nil, err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded config file", "path", cfg.ConfigFile)
	}
	return cfg, nil
}

// InitSQLite opens the notification log at dbPath, running migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		return nil, fmt.Errorf("open notification log: %w", err)
	}
	return repo, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
