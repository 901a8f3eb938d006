// Package main is the entry point for the bezoutd binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewd00010/bezout/internal/server"
	"github.com/ewd00010/bezout/pkg/config"
	"github.com/ewd00010/bezout/pkg/logging"
	"github.com/ewd00010/bezout/pkg/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listenAddr := flag.String("listen", "", "Address to listen on (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error; overrides config)")
	prettyLogs := flag.Bool("pretty", false, "Enable pretty console logging")
	flag.Parse()

	// Setup Logging
	logger, levelVar := logging.NewReloadableLogger(logging.Config{
		Level:  *logLevel,
		Pretty: *prettyLogs,
	})
	slog.SetDefault(logger)

	logger.Info("Starting bezoutd", "config", *configPath)

	// Setup Config Provider
	cfgProvider, err := config.NewFileProvider(*configPath)
	if err != nil {
		logger.Error("Failed to initialize config provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cfgProvider.Close(); err != nil {
			logger.Error("Failed to close config provider", "error", err)
		}
	}()

	cfg := cfgProvider.Current()
	if *logLevel == "" {
		levelVar.Set(logging.ParseLevel(cfg.Logging.Level))
	} else {
		// An explicit -log-level pins the level across config reloads.
		levelVar = nil
	}

	// Setup Telemetry
	shutdownTelemetry, err := telemetry.SetupProvider(context.Background(), telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	// Start Server
	srv := server.New(server.Options{
		Config: cfg,
		Logger: logger,
	})
	if err := srv.Start(resolveListenAddr(*listenAddr, cfg)); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}

	// Start Config Watcher
	go watchConfig(cfgProvider.Subscribe(), srv, levelVar, logger)

	// Wait for shutdown
	waitForShutdown(srv, shutdownTelemetry, logger)
}

// resolveListenAddr picks the bind address, with the -listen flag
// taking precedence over the config file.
func resolveListenAddr(flagAddr string, cfg *config.Config) string {
	if flagAddr != "" {
		return flagAddr
	}
	return cfg.Server.ListenAddr
}

// watchConfig applies configuration updates for the lifetime of the
// subscription. A nil level means the log level is pinned by a flag and
// reloads leave it alone.
func watchConfig(updates <-chan *config.Config, srv *server.Server, level *slog.LevelVar, logger *slog.Logger) {
	for cfg := range updates {
		logger.Info("Configuration update received")

		if level != nil {
			level.Set(logging.ParseLevel(cfg.Logging.Level))
		}
		srv.ApplyConfig(cfg)
	}
}

func waitForShutdown(srv *server.Server, shutdownTelemetry func(context.Context) error, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	logger.Info("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Error("Telemetry shutdown error", "error", err)
	}
}
