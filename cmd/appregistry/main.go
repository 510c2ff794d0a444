// Package main runs the registry backend: the REST API over the record store
// plus the scheduled collection audit.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

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
		logger.NewDefault("appregistry").WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := runtime.NewBackend(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("start backend")
	}

	log.WithFields(logrus.Fields{
		"addr":    srv.Addr(),
		"storage": cfg.Storage.Driver,
		"version": runtime.Version,
	}).Info("starting app registry backend")

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("backend stopped")
	}
	log.Info("backend shut down")
}
