package backends

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Database creates the target database when it is missing
type Database interface {
	// Exists reports whether the configured database exists
	Exists(ctx context.Context) (bool, error)

	// Create creates the configured database
	Create(ctx context.Context) error
}

// Backend represents a SQL database that migrations run against
type Backend interface {
	Database

	// Name returns the name of the backend (e.g., "postgresql", "sqlite")
	Name() string

	// Connect opens the connection pool. It does not require the database
	// to exist yet.
	Connect(config *ConnectionConfig) error

	// Close closes the connection pool
	Close() error

	// DB returns the pool opened by Connect
	DB() *sql.DB

	// HealthCheck verifies the backend is accessible
	HealthCheck(ctx context.Context) error
}

// ConnectionConfig holds configuration for a backend connection
type ConnectionConfig struct {
	Backend  string            `yaml:"backend"` // "postgresql", "sqlite"
	Host     string            `yaml:"host"`
	Port     string            `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Database string            `yaml:"database"` // database name, or file path for sqlite
	Schema   string            `yaml:"schema"`   // schema holding the history table
	Extra    map[string]string `yaml:"extra"`    // Additional backend-specific config
}

// Factory builds an unconnected backend
type Factory func() Backend

var factories = map[string]Factory{}

// Register makes a backend available to New under name and its aliases
func Register(factory Factory, names ...string) {
	for _, name := range names {
		factories[strings.ToLower(name)] = factory
	}
}

// New builds an unconnected backend by name
func New(name string) (Backend, error) {
	factory, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return factory(), nil
}

// Open builds a backend for config and connects it
func Open(config *ConnectionConfig) (Backend, error) {
	b, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(config); err != nil {
		return nil, err
	}
	return b, nil
}
