package main

import (
	"fmt"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	svc    *services.LedgerService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Personal finance tracker",
		Long: `ledger appends income and expense entries to your ledger and shows
the history, spending trend, category breakdown and savings progress.

Storage follows the same settings as the web server (DATA_BACKEND,
LEDGER_CSV_PATH, SQLITE_DB_PATH, ...); the flags below override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(envFile); err != nil {
				return err
			}
			v, err := config.NewViper()
			if err != nil {
				return err
			}
			// Terminal output should not be buried in start-up logs.
			v.SetDefault(config.KeyLogLevel, "warn")
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			return a.open(cmd, config.LoadFrom(v))
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.svc == nil {
				return nil
			}
			return a.svc.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend", "", "storage backend (memory, csv, sqlite, sheets)")
	flags.String("ledger", "", "path of the ledger CSV file")
	flags.String("db", "", "path of the SQLite database")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&envFile, "env-file", ".env", "environment file to load, if present")

	root.AddCommand(
		addCmd(a),
		tableCmd(a),
		trendCmd(a),
		categoriesCmd(a),
		savingsCmd(a),
	)
	return root
}

// bindFlags routes the persistent flags through viper so that an explicit
// flag wins over the environment and a config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	bindings := map[string]string{
		config.KeyDataBackend:   "backend",
		config.KeyLedgerCSVPath: "ledger",
		config.KeySQLiteDBPath:  "db",
		config.KeyLogLevel:      "log-level",
	}
	for key, name := range bindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) open(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cli.SetupLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger.WithComponent(log.ComponentCLI)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithBackendName(cfg.DataBackend),
		services.WithClosers(be),
	}
	if cfg.AMQPURL != "" {
		if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
			a.logger.Warn("AMQP unavailable, entry events disabled", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client), services.WithClosers(client))
		}
	}

	a.svc = services.NewLedgerService(be.Store, opts...)
	start := time.Now()
	if err := a.svc.Open(cmd.Context()); err != nil {
		return err
	}
	a.logger.Debug("Ledger opened", log.FieldBackend, cfg.DataBackend, "took", time.Since(start))
	return nil
}
