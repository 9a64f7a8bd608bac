package migrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/backends"
	_ "github.com/toolsascode/shift/internal/backends/sqlite"
	"github.com/toolsascode/shift/internal/differ"
	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/history"
	"github.com/toolsascode/shift/internal/idgen"
	"github.com/toolsascode/shift/internal/lock"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/model"
	"github.com/toolsascode/shift/internal/operations"
	"github.com/toolsascode/shift/internal/registry"
	"github.com/toolsascode/shift/internal/sqlgen"
)

const (
	createUsers = "20240101000000_create_users"
	addEmail    = "20240102000000_add_email"
)

func usersModel(withEmail bool) *model.Model {
	cols := []*model.Column{
		{Name: "id", Type: model.TypeInt64},
		{Name: "name", Type: model.TypeString},
	}
	if withEmail {
		cols = append(cols, &model.Column{Name: "email", Type: model.TypeString, IsNullable: true})
	}
	return &model.Model{Tables: []*model.Table{{
		Name:       "users",
		Columns:    cols,
		PrimaryKey: &model.Key{Name: "pk_users", Columns: []string{"id"}},
	}}}
}

// testRegistry builds both units by diffing the models, the way "shift add" does
func testRegistry(t *testing.T) registry.Registry {
	t.Helper()
	d := differ.New()
	reg := registry.NewInMemoryRegistry()

	v1, v2 := usersModel(false), usersModel(true)
	for _, step := range []struct {
		id       string
		from, to *model.Model
	}{
		{createUsers, nil, v1},
		{addEmail, v1, v2},
	} {
		up, err := d.Diff(step.from, step.to)
		require.NoError(t, err)
		down, err := d.Diff(step.to, step.from)
		require.NoError(t, err)
		require.NoError(t, reg.Register(&registry.Migration{ID: step.id, Up: up, Down: down, TargetModel: step.to}))
	}
	return reg
}

type fixture struct {
	migrator *Migrator
	backend  backends.Backend
	metrics  *metrics.Collector
}

func newFixture(t *testing.T, reg registry.Registry) *fixture {
	t.Helper()
	backend, err := backends.Open(&backends.ConnectionConfig{
		Backend:  "sqlite",
		Database: filepath.Join(t.TempDir(), "app.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	collector := metrics.New("test")
	m, err := New(Config{
		Registry:       reg,
		History:        history.NewSQLite(backend.DB()),
		Database:       backend,
		Connection:     executor.NewSQLConnection(backend.DB()),
		Generator:      sqlgen.NewSQLite(),
		Locker:         lock.NewSQLite(),
		ProductVersion: "1.0.0",
		Metrics:        collector,
	})
	require.NoError(t, err)
	return &fixture{migrator: m, backend: backend, metrics: collector}
}

func (f *fixture) columns(t *testing.T, table string) []string {
	t.Helper()
	rows, err := f.backend.DB().Query(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	require.NoError(t, err)
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Registry: registry.NewInMemoryRegistry(), History: history.NewSQLite(nil)})
	assert.Error(t, err)
}

func TestMigrate_AppliesAndRevertsEndToEnd(t *testing.T) {
	f := newFixture(t, testRegistry(t))
	ctx := executor.SetExecutionContext(context.Background(), "alice", "api", nil)

	exists, err := f.backend.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	result, err := f.migrator.Migrate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{createUsers, addEmail}, result.Applied)
	assert.Empty(t, result.Reverted)
	assert.Equal(t, []string{"id", "name", "email"}, f.columns(t, "users"))

	rows, err := history.NewSQLite(f.backend.DB()).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.0.0", rows[0].ProductVersion)
	assert.Equal(t, "alice", rows[0].ExecutedBy)
	assert.Equal(t, "api", rows[0].ExecutionMethod)

	// already up to date
	result, err = f.migrator.Migrate(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, result.Applied)

	result, err = f.migrator.Migrate(ctx, "create_users")
	require.NoError(t, err)
	assert.Equal(t, []string{addEmail}, result.Reverted)
	assert.Equal(t, []string{"id", "name"}, f.columns(t, "users"))

	result, err = f.migrator.Migrate(ctx, InitialDatabase)
	require.NoError(t, err)
	assert.Equal(t, []string{createUsers}, result.Reverted)
	assert.Empty(t, f.columns(t, "users"))

	rows, err = history.NewSQLite(f.backend.DB()).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.MigrationsApplied.WithLabelValues("up", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.MigrationsApplied.WithLabelValues("down", "success")))
}

func TestMigrate_StopsAtFirstFailure(t *testing.T) {
	reg := testRegistry(t)
	require.NoError(t, reg.Register(&registry.Migration{
		ID: "20240103000000_broken",
		Up: operations.List{
			&operations.SQL{SQL: "CREATE TABLE audit (id INTEGER)"},
			&operations.SQL{SQL: "INSERT INTO missing_table VALUES (1)"},
		},
	}))
	require.NoError(t, reg.Register(&registry.Migration{
		ID: "20240104000000_never",
		Up: operations.List{&operations.SQL{SQL: "CREATE TABLE never (id INTEGER)"}},
	}))
	f := newFixture(t, reg)

	result, err := f.migrator.Migrate(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20240103000000_broken")
	assert.Equal(t, []string{createUsers, addEmail}, result.Applied)

	// the failing unit rolled back as a whole
	assert.Empty(t, f.columns(t, "audit"))
	assert.Empty(t, f.columns(t, "never"))

	statuses, err := f.migrator.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 4)
	assert.True(t, statuses[1].Applied)
	assert.False(t, statuses[2].Applied)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MigrationsApplied.WithLabelValues("up", "error")))
}

func TestMigrate_UnknownTarget(t *testing.T) {
	f := newFixture(t, testRegistry(t))
	_, err := f.migrator.Migrate(context.Background(), "20991231000000_nope")
	assert.True(t, errors.Is(err, ErrMigrationNotFound))
}

// databaseLocker fails the way a lock kept inside the target database does
// when that database is missing
type databaseLocker struct {
	db       backends.Database
	acquired bool
}

func (l *databaseLocker) Acquire(ctx context.Context, _ string) (func(), error) {
	exists, err := l.db.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New(`database "app" does not exist`)
	}
	l.acquired = true
	return func() {}, nil
}

func TestMigrate_CreatesDatabaseBeforeLocking(t *testing.T) {
	f := newFixture(t, testRegistry(t))
	locker := &databaseLocker{db: f.backend}
	f.migrator.locker = locker
	ctx := context.Background()

	exists, err := f.backend.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	res, err := f.migrator.Migrate(ctx, "")
	require.NoError(t, err)
	assert.True(t, locker.acquired)
	assert.Equal(t, []string{createUsers, addEmail}, res.Applied)

	exists, err = f.backend.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplyAsync(t *testing.T) {
	f := newFixture(t, testRegistry(t))

	err, ok := <-f.migrator.ApplyAsync(context.Background(), "")
	require.True(t, ok)
	require.NoError(t, err)
	_, ok = <-f.migrator.ApplyAsync(context.Background(), "")
	assert.True(t, ok)

	assert.Equal(t, []string{"id", "name", "email"}, f.columns(t, "users"))
}

func TestList_ReportsOrphans(t *testing.T) {
	f := newFixture(t, testRegistry(t))
	ctx := context.Background()

	// nothing exists yet and List must not create it
	statuses, err := f.migrator.List(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Applied)
	exists, err := f.backend.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.migrator.Migrate(ctx, createUsers)
	require.NoError(t, err)
	repo := history.NewSQLite(f.backend.DB())
	_, err = f.backend.DB().Exec(repo.GetInsertScript(history.Row{MigrationID: "20230101000000_legacy", ProductVersion: "0.9.0"}))
	require.NoError(t, err)

	statuses, err = f.migrator.List(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)
	assert.Equal(t, "20230101000000_legacy", statuses[2].ID)
	assert.Equal(t, "legacy", statuses[2].Name)
	assert.True(t, statuses[2].Orphaned)
}

func TestDryRun_FollowsPlan(t *testing.T) {
	f := newFixture(t, testRegistry(t))
	ctx := context.Background()
	repo := history.NewSQLite(f.backend.DB())

	script, err := f.migrator.DryRun(ctx, "", ScriptOptions{})
	require.NoError(t, err)
	assert.Contains(t, script, repo.GetCreateScript())
	assert.Contains(t, script, "-- Apply migration "+createUsers)
	assert.Contains(t, script, "-- Apply migration "+addEmail)
	exists, err := f.backend.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists, "dry run must not create the database")

	// leave a gap below the last applied unit
	_, err = f.migrator.Migrate(ctx, "")
	require.NoError(t, err)
	_, err = f.backend.DB().Exec(repo.GetDeleteScript(createUsers))
	require.NoError(t, err)

	script, err = f.migrator.DryRun(ctx, "", ScriptOptions{})
	require.NoError(t, err)
	assert.Contains(t, script, "-- Apply migration "+createUsers)
	assert.NotContains(t, script, addEmail)
	assert.NotContains(t, script, repo.GetCreateScript())

	script, err = f.migrator.DryRun(ctx, InitialDatabase, ScriptOptions{})
	require.NoError(t, err)
	assert.Contains(t, script, "-- Revert migration "+addEmail)
	assert.NotContains(t, script, "-- Revert migration "+createUsers)
}

func scriptMigrator(t *testing.T, reg registry.Registry) *Migrator {
	t.Helper()
	m, err := New(Config{
		Registry:       reg,
		History:        history.NewPostgres(nil, ""),
		Connection:     executor.NewSQLConnection(nil),
		Generator:      sqlgen.NewPostgres(),
		ProductVersion: "1.0.0",
	})
	require.NoError(t, err)
	return m
}

func TestGenerateScript_Forward(t *testing.T) {
	m := scriptMigrator(t, testRegistry(t))

	script, err := m.GenerateScript(context.Background(), "", "", ScriptOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "CREATE TABLE IF NOT EXISTS"))
	first := strings.Index(script, "-- Apply migration "+createUsers)
	second := strings.Index(script, "-- Apply migration "+addEmail)
	require.Greater(t, first, 0)
	require.Greater(t, second, first)
	assert.Equal(t, 2, strings.Count(script, "BEGIN;"))
	assert.Equal(t, 2, strings.Count(script, "COMMIT;"))
	assert.Contains(t, script, "VALUES ('"+addEmail+"', '1.0.0'")
}

func TestGenerateScript_Range(t *testing.T) {
	m := scriptMigrator(t, testRegistry(t))

	script, err := m.GenerateScript(context.Background(), createUsers, addEmail, ScriptOptions{})
	require.NoError(t, err)
	assert.NotContains(t, script, "CREATE TABLE IF NOT EXISTS")
	assert.NotContains(t, script, "migration "+createUsers)
	assert.Contains(t, script, "migration "+addEmail)
}

func TestGenerateScript_Revert(t *testing.T) {
	m := scriptMigrator(t, testRegistry(t))

	script, err := m.GenerateScript(context.Background(), addEmail, InitialDatabase, ScriptOptions{Idempotent: true})
	require.NoError(t, err)

	first := strings.Index(script, "-- Revert migration "+addEmail)
	second := strings.Index(script, "-- Revert migration "+createUsers)
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, script, "IF EXISTS(SELECT 1 FROM")
	assert.NotContains(t, script, "IF NOT EXISTS(SELECT 1 FROM")
	assert.Contains(t, script, "DELETE FROM")
	assert.Contains(t, script, "END $SHIFT$;")
}

func TestGenerateScript_SplitsAroundSuppressedCommands(t *testing.T) {
	reg := registry.NewInMemoryRegistry()
	require.NoError(t, reg.Register(&registry.Migration{
		ID: "20240101000000_index",
		Up: operations.List{
			&operations.SQL{SQL: "UPDATE a SET x = 1"},
			&operations.SQL{SQL: "CREATE INDEX CONCURRENTLY ix ON a (x)", SuppressTransaction: true},
			&operations.SQL{SQL: "UPDATE a SET x = 2"},
		},
	}))
	m := scriptMigrator(t, reg)

	script, err := m.GenerateScript(context.Background(), InitialDatabase, "", ScriptOptions{})
	require.NoError(t, err)

	body := script[strings.Index(script, "-- Apply"):]
	want := []string{"BEGIN;", "UPDATE a SET x = 1;", "COMMIT;", "CREATE INDEX CONCURRENTLY ix ON a (x);", "BEGIN;", "UPDATE a SET x = 2;"}
	pos := 0
	for _, w := range want {
		i := strings.Index(body[pos:], w)
		require.GreaterOrEqual(t, i, 0, "missing %q after offset %d", w, pos)
		pos += i + len(w)
	}

	noTx, err := m.GenerateScript(context.Background(), InitialDatabase, "", ScriptOptions{NoTransactions: true})
	require.NoError(t, err)
	assert.NotContains(t, noTx, "BEGIN;")
	assert.NotContains(t, noTx, "COMMIT;")
}

func TestGenerateScript_ScriptOnlyDescribesOperations(t *testing.T) {
	m := scriptMigrator(t, testRegistry(t))

	script, err := m.GenerateScript(context.Background(), "", createUsers, ScriptOptions{ScriptOnly: true})
	require.NoError(t, err)
	assert.Contains(t, script, "-- "+operations.Describe(&operations.CreateTable{Name: "users"}))
}

func TestGenerateScript_IdempotentUnsupported(t *testing.T) {
	m, err := New(Config{
		Registry:   testRegistry(t),
		History:    history.NewSQLite(nil),
		Connection: executor.NewSQLConnection(nil),
		Generator:  sqlgen.NewSQLite(),
	})
	require.NoError(t, err)

	_, err = m.GenerateScript(context.Background(), "", "", ScriptOptions{Idempotent: true})
	assert.True(t, errors.Is(err, history.ErrIdempotentUnsupported))
}

func TestScaffold(t *testing.T) {
	reg := testRegistry(t)
	ids := idgen.New()

	v3 := usersModel(true)
	v3.Tables[0].Indexes = []*model.Index{{Name: "ix_users_email", Columns: []string{"email"}, IsUnique: true}}

	unit, err := Scaffold(reg, differ.New(), ids, "index_email", v3)
	require.NoError(t, err)
	assert.True(t, idgen.IsValidID(unit.ID))
	assert.Equal(t, "index_email", unit.Name())
	require.Len(t, unit.Up, 1)
	assert.Equal(t, operations.KindCreateIndex, unit.Up[0].Kind())
	require.Len(t, unit.Down, 1)
	assert.Equal(t, operations.KindDropIndex, unit.Down[0].Kind())

	_, err = Scaffold(reg, differ.New(), ids, "nothing", usersModel(true))
	assert.True(t, errors.Is(err, ErrNoChanges))

	_, err = Scaffold(reg, differ.New(), ids, "", v3)
	assert.Error(t, err)
}
