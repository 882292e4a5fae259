package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cachemir/steadyredis/internal/server"
	"github.com/cachemir/steadyredis/pkg/config"
	"github.com/cachemir/steadyredis/pkg/logger"
)

func main() {
	log := logger.NewLogger(logger.DefaultConfig())

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err == nil {
		logCfg := logger.DefaultConfig()
		logCfg.Level = level
		log = logger.NewLogger(logCfg)
	}

	srv := server.New(cfg, log)
	if err := srv.Start(); err != nil {
		log.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
	log.Info("Connect with", "url", srv.URL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutting down server...")

	if err := srv.Stop(); err != nil {
		log.Error("Error stopping server", "error", err)
	}
}
