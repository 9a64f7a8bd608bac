// Package app wires a Migrator from configuration for the server, the
// worker and the CLI
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/toolsascode/shift/internal/backends"
	_ "github.com/toolsascode/shift/internal/backends/postgresql"
	_ "github.com/toolsascode/shift/internal/backends/sqlite"
	"github.com/toolsascode/shift/internal/config"
	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/history"
	"github.com/toolsascode/shift/internal/lock"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/migrator"
	"github.com/toolsascode/shift/internal/registry"
	"github.com/toolsascode/shift/internal/sqlgen"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	Backend  backends.Backend
	Registry registry.Registry
	Loader   *registry.Loader
	Migrator *migrator.Migrator
	Metrics  *metrics.Collector

	closers []io.Closer
}

// Options tune New
type Options struct {
	// Registry defaults to registry.GlobalRegistry
	Registry registry.Registry
	// Watch starts the loader's directory watch when the config sets an
	// interval
	Watch bool
}

// New connects to the target database, loads the migrations directory and
// builds the orchestrator
func New(cfg *config.Config, opts Options) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetFormat(cfg.Log.Format)

	reg := opts.Registry
	if reg == nil {
		reg = registry.GlobalRegistry
	}

	backend, err := backends.Open(&cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Connection.Backend, err)
	}
	a := &App{
		Config:   cfg,
		Backend:  backend,
		Registry: reg,
		Metrics:  metrics.New(metrics.DefaultNamespace),
		closers:  []io.Closer{backend},
	}

	if err := a.build(opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(opts Options) error {
	cfg := a.Config
	db := a.Backend.DB()

	a.Loader = registry.NewLoader(cfg.Migrations.Dir)
	a.Loader.SetWriteGoFiles(cfg.Migrations.WriteGoFiles)
	if err := a.Loader.LoadAll(a.Registry); err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if opts.Watch && cfg.Migrations.WatchInterval != "" {
		interval, err := time.ParseDuration(cfg.Migrations.WatchInterval)
		if err != nil {
			return fmt.Errorf("invalid migrations watch interval: %w", err)
		}
		a.Loader.StartWatching(interval)
		a.closers = append(a.closers, closerFunc(func() error {
			a.Loader.StopWatching()
			return nil
		}))
	}

	historySchema := cfg.History.Schema
	if historySchema == "" {
		historySchema = cfg.Connection.Schema
	}
	repo, err := history.New(cfg.Connection.Backend, db, historySchema)
	if err != nil {
		return err
	}
	generator, err := sqlgen.New(cfg.Connection.Backend)
	if err != nil {
		return err
	}

	lockCfg := cfg.Lock
	if lockCfg.Backend == "" {
		lockCfg.Backend = cfg.Connection.Backend
	}
	locker, err := lock.New(lockCfg, db)
	if err != nil {
		return fmt.Errorf("failed to create migration lock: %w", err)
	}
	if c, ok := locker.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Migrator, err = migrator.New(migrator.Config{
		Registry:       a.Registry,
		History:        repo,
		Database:       a.Backend,
		Connection:     executor.NewSQLConnection(db),
		Generator:      generator,
		Executor:       executor.NewExecutor(a.Metrics),
		Locker:         &lock.Instrumented{Locker: locker, Metrics: a.Metrics},
		LockKey:        lockCfg.Key,
		ProductVersion: cfg.ProductVersion,
		Metrics:        a.Metrics,
	})
	if err != nil {
		return err
	}

	logger.Infof("Loaded %d migration(s) from %s", len(a.Registry.GetAll()), cfg.Migrations.Dir)
	return nil
}

// HealthCheck probes the target database
func (a *App) HealthCheck(ctx context.Context) error {
	return a.Backend.HealthCheck(ctx)
}

// Close releases everything New opened, newest first
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
