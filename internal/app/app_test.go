package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/config"
	"github.com/toolsascode/shift/internal/registry"
)

const unit = `id: 20240101000000_create_audit
up:
  - kind: sql
    sql: CREATE TABLE audit (id INTEGER PRIMARY KEY)
down:
  - kind: sql
    sql: DROP TABLE audit
`

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "migrations")
	require.NoError(t, os.MkdirAll(migrationsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrationsDir, "20240101000000_create_audit.yaml"), []byte(unit), 0o644))

	cfg := config.Default()
	cfg.Connection.Backend = "sqlite"
	cfg.Connection.Database = filepath.Join(dir, "app.db")
	cfg.Migrations.Dir = migrationsDir
	cfg.ProductVersion = "test"
	return cfg
}

func TestNew_WiresSQLite(t *testing.T) {
	a, err := New(sqliteConfig(t), Options{Registry: registry.NewInMemoryRegistry()})
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	require.Len(t, a.Registry.GetAll(), 1)
	require.NoError(t, a.HealthCheck(context.Background()))

	result, err := a.Migrator.Migrate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000_create_audit"}, result.Applied)

	statuses, err := a.Migrator.List(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
	assert.Equal(t, "test", statuses[0].ProductVersion)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Connection.Backend = "oracle"
	_, err := New(cfg, Options{Registry: registry.NewInMemoryRegistry()})
	assert.Error(t, err)
}

func TestNew_BadUnitClosesBackend(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Migrations.Dir, "20240102000000_broken.yaml"), []byte("id: 20240102000000_other\n"), 0o644))

	_, err := New(cfg, Options{Registry: registry.NewInMemoryRegistry()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestNew_InvalidWatchInterval(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Migrations.WatchInterval = "soon"
	_, err := New(cfg, Options{Registry: registry.NewInMemoryRegistry(), Watch: true})
	assert.Error(t, err)
}
