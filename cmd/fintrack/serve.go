package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

var serveShutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	app, err := cli.Bootstrap(ctx, applog.ComponentHTTP)
	if err != nil {
		return err
	}
	defer app.Close()
	cfg, logger := app.Config, app.Logger

	reports, err := newAggregator(app)
	if err != nil {
		return err
	}

	publisher := newPublisher(ctx, cfg, logger)
	ledger := services.NewTransactionService(app.Store, publisher)
	defer ledger.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Store:              app.Store,
		Reports:            reports,
		Ledger:             ledger,
		Logger:             logger,
		DefaultAccountID:   cfg.DefaultAccountID,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "HTTP server listening",
			"addr", srv.Addr,
			"default_account", cfg.DefaultAccountID,
			"timezone", reports.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Graceful shutdown failed", "error", err)
		return err
	}
	logger.InfoContext(shutdownCtx, "HTTP server stopped")
	return nil
}

func newAggregator(app *cli.App) (*analytics.Aggregator, error) {
	loc, err := app.Config.Location()
	if err != nil {
		return nil, err
	}
	return analytics.NewAggregator(app.Store,
		analytics.WithLocation(loc),
		analytics.WithSavingsCategoryName(app.Config.SavingsCategoryName),
	), nil
}

// newPublisher connects to the broker when AMQP_URL is set. Without a broker
// the worker's pending sweep still mirrors every change.
func newPublisher(ctx context.Context, cfg *config.Config, logger *applog.Logger) services.Publisher {
	log := logger.WithComponent(applog.ComponentAMQP)
	if cfg.AMQPURL == "" {
		log.InfoContext(ctx, "AMQP disabled, mirror relies on the pending sweep")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		log.WarnContext(ctx, "AMQP unavailable, continuing in SQLite-only mode", "error", err)
		return nil
	}
	log.InfoContext(ctx, "AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}
