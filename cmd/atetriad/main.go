package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/atetria/internal/app"
	"github.com/jaminalder/atetria/internal/config"
	"github.com/jaminalder/atetria/internal/logging"
	"github.com/jaminalder/atetria/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "atetriad:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, path, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if path == "" {
		logger.Info("no config file found, using defaults")
	} else {
		logger.Info("configuration loaded", zap.String("path", path))
	}

	svc := app.NewService(cfg.Game, logger.Named("app"))
	defer svc.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewServer(svc, logger.Named("web")),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigChan:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	}

	// Streams end when the service closes their subscriptions.
	svc.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}
