// API server entry point for ContextDiff.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ContextDiff/internal/config"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env CONTEXTDIFF_* always applies)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "contextdiff-apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if configPath != "" {
		watcher, err := config.Watch(configPath, app.reload, logger)
		if err != nil {
			logger.Warn("config hot reload disabled", logging.Err(err))
		} else {
			defer func() { _ = watcher.Close() }()
		}
	}

	logger.Info("starting ContextDiff API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
		logging.String("oracle", app.oracleName),
		logging.Int("sinks", app.sinkCount))

	serveErr := make(chan error, 1)
	go func() {
		if err := app.server.Start(); err != nil {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", logging.Err(err))
			app.shutdown(cfg.Server.ShutdownTimeout)
			return err
		}
	}

	app.shutdown(cfg.Server.ShutdownTimeout)
	logger.Info("server stopped")
	return nil
}

//Personal.AI order the ending
