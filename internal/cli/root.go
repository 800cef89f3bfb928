// Package cli implements the warehouse command line: lake maintenance,
// loads, detection processing, the query API server and the scheduler.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/artifact"
	"github.com/tbourn/telegram-warehouse/internal/config"
	"github.com/tbourn/telegram-warehouse/internal/ingest"
	"github.com/tbourn/telegram-warehouse/internal/lake"
	"github.com/tbourn/telegram-warehouse/internal/observability"
	"github.com/tbourn/telegram-warehouse/internal/repo"
	"github.com/tbourn/telegram-warehouse/internal/sysutil"
)

var errUploadsDisabled = errors.New("artifact uploads are disabled: set ARTIFACT_ENDPOINT or ARTIFACT_DIR")

// app carries what every subcommand shares. It is filled in by the root
// command's pre-run hook.
type app struct {
	version string
	cfg     config.Config
	log     zerolog.Logger
	out     io.Writer

	db           *gorm.DB
	shutdownOTel func(context.Context) error

	// flag overrides
	lakeRoot string
	dbDriver string
	dbDSN    string
	logLevel string
}

// NewRootCmd builds the warehouse command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:     "warehouse",
		Short:   "Load scraped Telegram data from the lake into the warehouse and serve it",
		Version: version,

		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.close() },
	}
	cobra.EnableCommandSorting = false

	pf := root.PersistentFlags()
	pf.StringVar(&a.lakeRoot, "lake-root", "", "data lake root (overrides LAKE_ROOT)")
	pf.StringVar(&a.dbDriver, "db-driver", "", "sqlite or postgres (overrides DB_DRIVER)")
	pf.StringVar(&a.dbDSN, "db-dsn", "", "database DSN (overrides DB_DSN)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newLakeCmd(a),
		newLoadCmd(a),
		newStatsCmd(a),
		newDetectionsCmd(a),
		newServeCmd(a),
		newScheduleCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.LakeRoot = sysutil.FirstNonEmpty(a.lakeRoot, cfg.LakeRoot)
	cfg.DB.Driver = strings.ToLower(sysutil.FirstNonEmpty(a.dbDriver, cfg.DB.Driver))
	cfg.DB.DSN = sysutil.FirstNonEmpty(a.dbDSN, cfg.DB.DSN)
	cfg.LogLevel = sysutil.FirstNonEmpty(a.logLevel, cfg.LogLevel)
	a.cfg = cfg

	a.out = cmd.OutOrStdout()
	a.log = sysutil.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty)

	shutdown, err := observability.SetupOTel(cmd.Context(), cfg.OTEL, a.version, cmd.Name())
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	a.shutdownOTel = shutdown
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		a.db = nil
	}
	if a.shutdownOTel != nil {
		errs = append(errs, a.shutdownOTel(context.Background()))
		a.shutdownOTel = nil
	}
	return errors.Join(errs...)
}

// store opens and migrates the warehouse database once per command.
func (a *app) store() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.DB.Driver == repo.DriverSQLite && !strings.HasPrefix(a.cfg.DB.DSN, "file:") {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DB.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := repo.Open(repo.Options{
		Driver:       a.cfg.DB.Driver,
		DSN:          a.cfg.DB.DSN,
		MaxOpenConns: a.cfg.DB.MaxOpenConns,
		Tracing:      a.cfg.OTEL.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) lake() *lake.Store {
	return lake.New(a.cfg.LakeRoot, lake.WithLogger(a.log))
}

func (a *app) loader(db *gorm.DB) *ingest.Loader {
	return ingest.NewLoader(repo.NewMessageStore(db), ingest.WithLogger(a.log))
}

// sink returns the configured artifact destination.
func (a *app) sink(ctx context.Context) (artifact.Sink, error) {
	switch {
	case a.cfg.Artifact.Endpoint != "":
		return artifact.NewMinioSink(ctx, a.cfg.Artifact)
	case a.cfg.Artifact.Dir != "":
		return artifact.Dir{Root: a.cfg.Artifact.Dir}, nil
	default:
		return nil, errUploadsDisabled
	}
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
