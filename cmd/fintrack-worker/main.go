package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fintrack-worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.Bootstrap(ctx, applog.ComponentWorker)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg, logger := app.Config, app.Logger

	logger.InfoContext(ctx, "Starting fintrack-worker",
		"mirror", cfg.MirrorBackend,
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	mirror, err := backend.NewFactory(logger.Logger).CreateMirror(ctx, bcfg)
	if err != nil {
		return err
	}
	if mirror.Cleanup != nil {
		defer func() {
			if err := mirror.Cleanup(); err != nil {
				logger.ErrorContext(ctx, "Mirror cleanup failed", "error", err)
			}
		}()
	}

	syncWorker := worker.NewSyncWorker(app.Store, mirror.Mirror, cfg.SyncBatchSize)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.WarnContext(ctx, "Startup sync check failed", "error", err)
	}
	if err := syncWorker.Start(ctx, cfg.SyncInterval); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(applog.ComponentAMQP).WarnContext(ctx,
				"AMQP unavailable, relying on the pending sweep", "error", err)
		} else {
			defer client.Close()
			g.Go(func() error {
				return cli.IgnoreCanceled(client.ConsumeMessages(gctx, syncWorker.HandleSyncMessage, syncWorker.HandleDeleteMessage))
			})
		}
	} else {
		logger.InfoContext(ctx, "AMQP disabled, relying on the pending sweep")
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()
	logger.InfoContext(ctx, "Shutting down fintrack-worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := syncWorker.Stop(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Sync worker did not stop cleanly", "error", err)
	}
	return runErr
}
