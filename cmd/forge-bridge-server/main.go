// Package main provides the forge-bridge server entry point.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/forge-bridge/forge-bridge/internal/platform/config"
	"github.com/forge-bridge/forge-bridge/internal/platform/logging"
	"github.com/forge-bridge/forge-bridge/internal/server"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := logging.New("forge-bridge", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
