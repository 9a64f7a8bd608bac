package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/toolsascode/shift/internal/backends"
)

// Memory is the path of a private in-memory database
const Memory = ":memory:"

func init() {
	backends.Register(func() backends.Backend { return NewBackend() }, "sqlite", "sqlite3")
}

// Backend implements the Backend interface for a SQLite file
type Backend struct {
	db   *sql.DB
	path string
}

// NewBackend creates a new SQLite backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "sqlite"
}

// Connect opens the database file named by config.Database (or
// Extra["path"]). Opening does not create the file.
func (b *Backend) Connect(config *backends.ConnectionConfig) error {
	b.path = config.Database
	if p := config.Extra["path"]; p != "" {
		b.path = p
	}
	if b.path == "" {
		return errors.New("sqlite backend requires a database path")
	}

	var err error
	b.db, err = sql.Open("sqlite", b.dsn())
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite serializes writers; a single connection also keeps an
	// in-memory database alive and shared
	b.db.SetMaxOpenConns(1)
	return nil
}

func (b *Backend) dsn() string {
	if b.path == Memory || strings.HasPrefix(b.path, "file:") {
		return b.path
	}
	return "file:" + b.path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// DB returns the connection pool
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Path returns the database file path
func (b *Backend) Path() string {
	return b.path
}

// Exists reports whether the database file is present
func (b *Backend) Exists(context.Context) (bool, error) {
	if b.path == Memory {
		return true, nil
	}
	_, err := os.Stat(b.filePath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check database file: %w", err)
}

// Create creates the parent directory and the database file
func (b *Backend) Create(ctx context.Context) error {
	if b.path == Memory {
		return nil
	}
	if dir := filepath.Dir(b.filePath()); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	// an empty file is a valid sqlite database
	f, err := os.OpenFile(b.filePath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", b.path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return b.HealthCheck(ctx)
}

func (b *Backend) filePath() string {
	p := strings.TrimPrefix(b.path, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// HealthCheck verifies the database is accessible
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.db == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return b.db.PingContext(ctx)
}
