// Package cmd implements the payroll command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/paycycle/backend/internal/config"
	"github.com/paycycle/backend/pkg/alerts"
	"github.com/paycycle/backend/pkg/metrics"
	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/processor"
	"github.com/paycycle/backend/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds everything a command needs. It is set up before each command runs.
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	store     *store.Store
	processor *processor.Processor
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "payroll",
		Short:         "Compute, validate and approve monthly payroll periods.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown()
		},
	}

	rootCmd.AddCommand(newPeriodCmd(a))
	return rootCmd
}

// Execute runs the command line interface. An interrupt cancels the
// running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	// Log format can be explicitly set, it defaults to JSON.
	// Logs go to stderr, stdout is reserved for command output.
	output := io.Writer(os.Stderr)
	if cfg.Log.Format == "human" {
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	zerolog.SetGlobalLevel(cfg.Log.Level)
	log.Logger = log.Output(output).With().Timestamp().Logger()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	if cfg.Database.Postgres() {
		a.db, err = models.ConnectPostgres(cfg.Database.PostgresDSN())
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), os.ModePerm); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		a.db, err = models.Connect(cfg.Database.DSN)
	}
	if err != nil {
		return err
	}

	a.store = store.New(a.db)
	a.processor, err = processor.New(cfg.Tables, processor.Collaborators{
		Periods:    a.store,
		Employees:  a.store,
		Contracts:  a.store,
		Entries:    a.store,
		Deductions: a.store,
		Alerts:     alerts.NewLogSink(log.Logger, cfg.Alerts.Silence...),
	}, processor.WithWorkers(cfg.Payroll.Workers), processor.WithLogger(log.Logger))

	return err
}

func (a *app) teardown() error {
	if a.db != nil {
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			log.Warn().Err(err).Msg("closing the database failed")
		}
	}

	if a.cfg != nil && a.cfg.Metrics.Pushgateway != "" {
		return metrics.Push(a.cfg.Metrics.Pushgateway, "payroll")
	}

	return nil
}

// render writes v as indented JSON to the command's output.
func render(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
