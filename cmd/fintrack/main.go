// Command fintrack serves the personal finance tracker web UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheCleanInterval = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg := cli.LoadAndValidateConfig()

	logger, err := cli.SetupLogger(cfg, nil)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	rec := metrics.New()
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(rec),
		services.WithBackendName(cfg.DataBackend),
		services.WithReportCache(64, 10*time.Minute),
		services.WithClosers(be),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The ledger stays usable; the worker's sweep catches up later.
			logger.Warn("AMQP unavailable, entry events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client), services.WithClosers(client))
		}
	}

	svc := services.NewLedgerService(be.Store, opts...)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Close failed", log.FieldError, err)
		}
	}()
	if err := svc.Open(ctx); err != nil {
		return err
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     svc,
		Categories: be.Taxonomy,
		Metrics:    rec,
		Logger:     logger,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitPerSecond,
			Burst:             cfg.RateLimitBurst,
		},
	})
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return cache.NewManager(svc.ReportCache()).Run(gctx, cacheCleanInterval)
	})

	// Without a broker there is no worker to mirror new rows, so the server
	// sweeps the SQLite log into the spreadsheet itself.
	if be.SQLite != nil && cfg.HasSheets() && cfg.AMQPURL == "" {
		mirror, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return fmt.Errorf("create sheets mirror: %w", err)
		}
		mw := worker.NewMirrorWorker(mirror, be.SQLite, rec, cfg.MirrorBatchSize)
		processor := services.NewMirrorProcessor(mw, services.MirrorProcessorConfig{PollInterval: cfg.MirrorInterval})
		g.Go(func() error { return processor.Run(gctx) })
		logger.Info("In-process mirror enabled", "interval", cfg.MirrorInterval)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
