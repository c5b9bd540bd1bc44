package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"carprice/config"
	"carprice/dataset"
	qhttp "carprice/http"
	"carprice/logging"
	"carprice/monitoring"
	"carprice/params"
	"carprice/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 2. Open stores
	stores, err := pipeline.OpenStores(cfg)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, stores, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Exiting")
}

func serve(ctx context.Context, cfg *config.Config, stores *pipeline.Stores, logger *zap.Logger) error {
	hub := monitoring.NewHub(logger)
	runner := pipeline.NewRunner(stores.Params, dataset.File(cfg.Data.Path), stores.Recorder(), logger)
	runner.Observe(func(e pipeline.ProgressEvent) {
		hub.Publish(monitoring.TrainingProgress, e)
	})

	deps := qhttp.Deps{
		Store:     stores.Params,
		Runner:    runner,
		Hub:       hub,
		Metrics:   monitoring.NewCollector(),
		Training:  cfg.Training,
		CacheSize: cfg.Http.CacheSize,
		Logger:    logger,
	}
	if stores.Runs != nil {
		deps.Runs = stores.Runs
	}
	api, err := qhttp.NewAPI(deps)
	if err != nil {
		return err
	}

	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = cfg.Http.Port
	server := qhttp.NewServer(serverConfig, api, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		return server.Stop(context.Background())
	})

	if stores.WatchPath != "" {
		watcher, err := params.NewWatcher(stores.WatchPath, stores.Params, logger, api.ParametersChanged)
		if err != nil {
			logger.Warn("watch parameters failed", zap.Error(err))
		} else {
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	return g.Wait()
}
