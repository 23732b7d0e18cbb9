package main

import (
	"context"
	"errors"
	"os"
	"time"

	"workdash/internal/amqp"
	"workdash/internal/cli"
	applog "workdash/internal/log"
	"workdash/internal/services"
	"workdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := applog.New(applog.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting workdash-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	stats := services.NewStatsProcessor(services.StatsProcessorConfig{
		ReportInterval: cfg.StatsInterval,
		MaxSources:     services.DefaultStatsProcessorConfig().MaxSources,
	})
	uploads := worker.NewUploadWorker(stats)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(stats.Stop(ctx), amqpClient.Close())
	})

	if err := stats.Start(ctx); err != nil {
		logger.Error("Failed to start stats processor", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.ConsumeUploads(ctx, uploads.HandleUploadEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	logger.Info("Consuming upload events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"stats_interval", cfg.StatsInterval)

	cli.WaitForShutdown(ctx, done)

	final := uploads.Stats()
	logger.Info("Worker stopped",
		"imports", final.Imports,
		"sessions", final.Sessions,
		"rows", final.Rows)
}
