package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("recurring-worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.Bootstrap(ctx, applog.ComponentRecurring)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg, logger := app.Config, app.Logger

	// Created transactions go through the same service as the API so the
	// mirror worker sees them.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, continuing in SQLite-only mode", "error", err)
		} else {
			publisher = client
		}
	}
	ledger := services.NewTransactionService(app.Store, publisher)
	defer ledger.Close()

	processor := services.NewRecurringProcessor(app.Store, ledger)
	interval := cfg.RecurringInterval
	logger.InfoContext(ctx, "Starting recurring-worker",
		"interval", interval,
		"sqlite_db", cfg.SQLiteDBPath)

	process := func(now time.Time) {
		res, err := processor.ProcessDue(ctx, now)
		if err != nil {
			logger.ErrorContext(ctx, "Recurring processing failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "Recurring processing complete",
			"checked", res.Checked,
			"created", res.Created,
			"skipped", res.Skipped,
			"failed", res.Failed,
			"next_check", now.Add(interval).Format("15:04:05"))
	}

	process(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(context.Background(), "Recurring-worker shutdown complete")
			return nil
		case now := <-ticker.C:
			process(now)
		}
	}
}
