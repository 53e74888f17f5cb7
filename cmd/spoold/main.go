package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"spool/internal/config"
	"spool/internal/daemon"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/status"
	"spool/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	coord := status.New()
	manager := workflow.NewManager(cfg, store, buildStages(cfg, store, logger, coord), logger,
		workflow.WithCoordinator(coord))

	d, err := daemon.New(cfg, store, logger, manager, coord)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	select {
	case <-ctx.Done():
	case <-d.ShutdownRequested():
	}
	d.Stop()
	logger.Info("spoold shutting down")
}
