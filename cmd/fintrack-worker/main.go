// Command fintrack-worker copies appended ledger entries to the Google
// Sheets mirror.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg := cli.LoadAndValidateConfig()
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg, nil)
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentMirror)
	logger.Info("Starting fintrack-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	mirror, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("create sheets mirror: %w", err)
	}

	// With the sqlite backend the worker shares the database file and keeps
	// the mirrored flags, which makes redelivery and sweeping possible.
	var queue worker.MirrorQueue
	if cfg.DataBackend == config.BackendSQLite {
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer repo.Close()
		queue = repo
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer client.Close()

	rec := metrics.New()
	mw := worker.NewMirrorWorker(mirror, queue, rec, cfg.MirrorBatchSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.RunConsumer(gctx, mw.HandleEntryAppended)
	})

	if queue != nil {
		processor := services.NewMirrorProcessor(mw, services.MirrorProcessorConfig{PollInterval: cfg.MirrorInterval})
		g.Go(func() error { return processor.Run(gctx) })
	} else {
		logger.Info("No local store, periodic sweep disabled", log.FieldBackend, cfg.DataBackend)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", rec.Handler())
		srv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
