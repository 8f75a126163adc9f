package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"mql_bridge/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("MQL_BRIDGE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Bridge loop (blocks until signal)
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("❌ Bridge failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
