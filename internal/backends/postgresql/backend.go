package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/toolsascode/shift/internal/backends"
	"github.com/toolsascode/shift/internal/logger"
)

// Drivers accepted in ConnectionConfig.Extra["driver"]
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// maintenanceDatabase is used to look up and create the target database
const maintenanceDatabase = "postgres"

func init() {
	backends.Register(func() backends.Backend { return NewBackend() }, "postgresql", "postgres", "pgx")
}

// Backend implements the Backend interface for PostgreSQL
type Backend struct {
	db     *sql.DB
	config *backends.ConnectionConfig
	driver string
}

// NewBackend creates a new PostgreSQL backend
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns the backend name
func (b *Backend) Name() string {
	return "postgresql"
}

// Driver returns the database/sql driver name for config, pgx unless the
// lib/pq driver was asked for
func Driver(config *backends.ConnectionConfig) string {
	if strings.EqualFold(config.Extra["driver"], DriverPq) || strings.EqualFold(config.Extra["driver"], "pq") {
		return DriverPq
	}
	return DriverPgx
}

// DSN builds a key/value connection string understood by both drivers
func DSN(config *backends.ConnectionConfig, database string) string {
	sslmode := config.Extra["sslmode"]
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		"host=" + dsnValue(config.Host),
		"port=" + dsnValue(config.Port),
		"user=" + dsnValue(config.Username),
		"password=" + dsnValue(config.Password),
		"dbname=" + dsnValue(database),
		"sslmode=" + dsnValue(sslmode),
	}
	if config.Schema != "" {
		parts = append(parts, "search_path="+dsnValue(config.Schema))
	}
	return strings.Join(parts, " ")
}

func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// Connect opens the connection pool for the configured database
func (b *Backend) Connect(config *backends.ConnectionConfig) error {
	b.config = config
	b.driver = Driver(config)

	var err error
	b.db, err = sql.Open(b.driver, DSN(config, config.Database))
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	// Configure connection pool settings
	configureConnectionPool(b.db)
	logger.Debugf("Opened PostgreSQL pool for %s@%s:%s/%s (driver %s)", config.Username, config.Host, config.Port, config.Database, b.driver)
	return nil
}

// Close closes the PostgreSQL connection
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

// withMaintenance runs fn on a short-lived connection to the maintenance
// database, since the target may not exist yet
func (b *Backend) withMaintenance(ctx context.Context, fn func(db *sql.DB) error) error {
	if b.config == nil {
		return fmt.Errorf("database connection not initialized")
	}
	db, err := sql.Open(b.driver, DSN(b.config, maintenanceDatabase))
	if err != nil {
		return fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)
	return fn(db)
}

// Exists checks pg_database for the configured database
func (b *Backend) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := b.withMaintenance(ctx, func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)`,
			b.config.Database).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create creates the configured database
func (b *Backend) Create(ctx context.Context) error {
	err := b.withMaintenance(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(b.config.Database))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", b.config.Database, err)
	}
	logger.Infof("Created database %s", b.config.Database)
	return nil
}

// HealthCheck verifies the backend is accessible
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.db == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return b.db.PingContext(ctx)
}

// configureConnectionPool configures the database connection pool with reasonable defaults
// that can be overridden via environment variables
func configureConnectionPool(db *sql.DB) {
	// Max open connections per pool (default: 5)
	maxOpenConns := getEnvInt("SHIFT_DB_MAX_OPEN_CONNS", 5)
	db.SetMaxOpenConns(maxOpenConns)

	// Max idle connections per pool (default: 2)
	maxIdleConns := getEnvInt("SHIFT_DB_MAX_IDLE_CONNS", 2)
	db.SetMaxIdleConns(maxIdleConns)

	// Connection max lifetime (default: 5 minutes)
	connMaxLifetime := time.Duration(getEnvInt("SHIFT_DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute
	db.SetConnMaxLifetime(connMaxLifetime)

	// Connection max idle time (default: 1 minute)
	connMaxIdleTime := time.Duration(getEnvInt("SHIFT_DB_CONN_MAX_IDLE_TIME_MINUTES", 1)) * time.Minute
	db.SetConnMaxIdleTime(connMaxIdleTime)
}

// getEnvInt gets an integer environment variable or returns the default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
