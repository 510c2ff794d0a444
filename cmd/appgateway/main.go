// Package main runs the read-only API gateway in front of the registry
// backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/app_registry/internal/app/runtime"
	"github.com/R3E-Network/app_registry/internal/config"
	"github.com/R3E-Network/app_registry/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	if v := os.Getenv("CONFIG_PATH"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("appgateway").WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := runtime.NewGateway(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("start gateway")
	}
	log.WithField("addr", srv.Addr()).WithField("backend", cfg.Gateway.BackendURL).Info("starting api gateway")

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("gateway stopped")
	}
}
