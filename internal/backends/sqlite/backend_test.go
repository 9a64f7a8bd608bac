package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/backends"
)

func TestBackend_CreateMissingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	b, err := backends.Open(&backends.ConnectionConfig{Backend: "sqlite", Database: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	assert.Equal(t, "sqlite", b.Name())

	exists, err := b.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Create(ctx))

	exists, err = b.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = b.DB().ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
}

func TestBackend_Memory(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Connect(&backends.ConnectionConfig{Database: Memory}))
	t.Cleanup(func() { _ = b.Close() })

	exists, err := b.Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, b.Create(context.Background()))
	require.NoError(t, b.HealthCheck(context.Background()))
}

func TestBackend_RequiresPath(t *testing.T) {
	err := NewBackend().Connect(&backends.ConnectionConfig{})
	assert.Error(t, err)
}

func TestFilePath(t *testing.T) {
	b := &Backend{path: "file:/tmp/x.db?_pragma=foreign_keys(1)"}
	assert.Equal(t, "/tmp/x.db", b.filePath())
}
