// Package migrator decides which migration units to apply or revert and
// drives them through the SQL generator and the command executor, recording
// each step in the history table.
package migrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toolsascode/shift/internal/backends"
	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/history"
	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/lock"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/registry"
	"github.com/toolsascode/shift/internal/sqlgen"
)

// DefaultLockKey is used when Config.LockKey is empty
const DefaultLockKey = "shift"

// Config holds the collaborators of a Migrator
type Config struct {
	Registry   registry.Registry
	History    history.Repository
	Database   backends.Database
	Connection executor.Connection
	Generator  sqlgen.Generator
	Executor   *executor.Executor
	// Locker is optional
	Locker         lock.Locker
	LockKey        string
	ProductVersion string
	// Metrics is optional
	Metrics *metrics.Collector
}

// Migrator applies and reverts migration units
type Migrator struct {
	registry       registry.Registry
	history        history.Repository
	database       backends.Database
	conn           executor.Connection
	generator      sqlgen.Generator
	executor       *executor.Executor
	locker         lock.Locker
	lockKey        string
	productVersion string
	metrics        *metrics.Collector
}

// New creates a migrator
func New(cfg Config) (*Migrator, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("migrator: registry is required")
	case cfg.History == nil:
		return nil, errors.New("migrator: history repository is required")
	case cfg.Connection == nil:
		return nil, errors.New("migrator: connection is required")
	case cfg.Generator == nil:
		return nil, errors.New("migrator: SQL generator is required")
	}

	m := &Migrator{
		registry:       cfg.Registry,
		history:        cfg.History,
		database:       cfg.Database,
		conn:           cfg.Connection,
		generator:      cfg.Generator,
		executor:       cfg.Executor,
		locker:         cfg.Locker,
		lockKey:        cfg.LockKey,
		productVersion: cfg.ProductVersion,
		metrics:        cfg.Metrics,
	}
	if m.executor == nil {
		m.executor = executor.NewExecutor(cfg.Metrics)
	}
	if m.locker == nil {
		m.locker = lock.Noop{}
	}
	if m.lockKey == "" {
		m.lockKey = DefaultLockKey
	}
	return m, nil
}

// Result lists the units a run got through, in execution order. On failure
// it holds the units completed before the failing one.
type Result struct {
	Applied  []string `json:"applied"`
	Reverted []string `json:"reverted"`
}

// Migrate brings the database to target: "" for the latest unit,
// InitialDatabase to revert everything, or a unit ID or name. The first
// failure stops the run; completed units stay applied.
func (m *Migrator) Migrate(ctx context.Context, target string) (*Result, error) {
	// The lock may live in the target database, so it has to exist first.
	if err := m.ensureDatabase(ctx); err != nil {
		return nil, err
	}
	release, err := m.locker.Acquire(ctx, m.lockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer release()

	if err := m.ensureHistory(ctx); err != nil {
		return nil, err
	}

	applied, err := m.history.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	plan, err := BuildPlan(m.registry.GetAll(), appliedIDs(applied), target)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if plan.Empty() {
		logger.Info("Database is up to date")
		return result, nil
	}

	for i, unit := range plan.Revert {
		previous := previousModel(plan, i)
		logger.Infof("Reverting migration %s", unit.ID)
		err := m.revert(ctx, unit, previous)
		m.metrics.MigrationFinished("down", err)
		if err != nil {
			return result, fmt.Errorf("failed to revert migration %s: %w", unit.ID, err)
		}
		result.Reverted = append(result.Reverted, unit.ID)
	}

	for _, unit := range plan.Apply {
		logger.Infof("Applying migration %s", unit.ID)
		err := m.apply(ctx, unit)
		m.metrics.MigrationFinished("up", err)
		if err != nil {
			return result, fmt.Errorf("failed to apply migration %s: %w", unit.ID, err)
		}
		result.Applied = append(result.Applied, unit.ID)
	}

	logger.Infof("Migration finished: %d applied, %d reverted", len(result.Applied), len(result.Reverted))
	return result, nil
}

// ApplyAsync runs Migrate on its own goroutine. The channel receives exactly
// one value and is then closed.
func (m *Migrator) ApplyAsync(ctx context.Context, target string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := m.Migrate(ctx, target)
		done <- err
	}()
	return done
}

// previousModel is the shape the database has once Revert[i] is undone
func previousModel(plan *Plan, i int) *model.Model {
	if i+1 < len(plan.Revert) {
		return plan.Revert[i+1].TargetModel
	}
	if plan.Landing != nil {
		return plan.Landing.TargetModel
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, unit *registry.Migration) error {
	cmds, err := m.generator.Generate(unit.Up, unit.TargetModel, sqlgen.Options{})
	if err != nil {
		return err
	}
	executedBy, method, _ := executor.GetExecutionContext(ctx)
	cmds = append(cmds, executor.Command{Text: m.history.GetInsertScript(history.Row{
		MigrationID:     unit.ID,
		ProductVersion:  m.productVersion,
		ExecutedBy:      executedBy,
		ExecutionMethod: method,
		AppliedAt:       time.Now().UTC(),
	})})
	return m.executor.Execute(ctx, cmds, m.conn)
}

func (m *Migrator) revert(ctx context.Context, unit *registry.Migration, previous *model.Model) error {
	cmds, err := m.generator.Generate(unit.Down, previous, sqlgen.Options{})
	if err != nil {
		return err
	}
	cmds = append(cmds, executor.Command{Text: m.history.GetDeleteScript(unit.ID)})
	return m.executor.Execute(ctx, cmds, m.conn)
}

func (m *Migrator) ensureDatabase(ctx context.Context) error {
	if m.database == nil {
		return nil
	}
	exists, err := m.database.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check database: %w", err)
	}
	if exists {
		return nil
	}
	logger.Info("Database does not exist, creating it")
	if err := m.database.Create(ctx); err != nil {
		// Another process may have created it while we were unlocked.
		if exists, checkErr := m.database.Exists(ctx); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

func (m *Migrator) ensureHistory(ctx context.Context) error {
	exists, err := m.history.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check migration history: %w", err)
	}
	if exists {
		return nil
	}
	logger.Info("Creating migration history table")
	cmds := []executor.Command{{Text: m.history.GetCreateScript()}}
	if err := m.executor.Execute(ctx, cmds, m.conn); err != nil {
		return fmt.Errorf("failed to create migration history: %w", err)
	}
	return nil
}

func appliedIDs(rows []history.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.MigrationID
	}
	return ids
}

// Status describes one unit, or one history row without a unit
type Status struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Applied        bool      `json:"applied"`
	AppliedAt      time.Time `json:"applied_at,omitempty"`
	ProductVersion string    `json:"product_version,omitempty"`
	ExecutedBy     string    `json:"executed_by,omitempty"`
	// Orphaned rows are recorded in history but unknown to the registry
	Orphaned bool `json:"orphaned,omitempty"`
}

// List reports every known unit with its applied state, followed by orphaned
// history rows. It never creates the database or the history table.
func (m *Migrator) List(ctx context.Context) ([]Status, error) {
	rows, err := m.appliedRows(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]history.Row, len(rows))
	for _, r := range rows {
		byID[strings.ToLower(r.MigrationID)] = r
	}

	var statuses []Status
	for _, unit := range m.registry.GetAll() {
		s := Status{ID: unit.ID, Name: unit.Name()}
		if r, ok := byID[strings.ToLower(unit.ID)]; ok {
			s.Applied = true
			s.AppliedAt = r.AppliedAt
			s.ProductVersion = r.ProductVersion
			s.ExecutedBy = r.ExecutedBy
			delete(byID, strings.ToLower(unit.ID))
		}
		statuses = append(statuses, s)
	}
	for _, r := range rows {
		if _, orphan := byID[strings.ToLower(r.MigrationID)]; !orphan {
			continue
		}
		statuses = append(statuses, Status{
			ID:             r.MigrationID,
			Name:           idgen.GetName(r.MigrationID),
			Applied:        true,
			AppliedAt:      r.AppliedAt,
			ProductVersion: r.ProductVersion,
			ExecutedBy:     r.ExecutedBy,
			Orphaned:       true,
		})
	}
	return statuses, nil
}

func (m *Migrator) appliedRows(ctx context.Context) ([]history.Row, error) {
	if m.database != nil {
		exists, err := m.database.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check database: %w", err)
		}
		if !exists {
			return nil, nil
		}
	}
	exists, err := m.history.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check migration history: %w", err)
	}
	if !exists {
		return nil, nil
	}
	rows, err := m.history.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration history: %w", err)
	}
	return rows, nil
}
