// Package history records which migrations have been applied to a database.
// Repositories read the history table directly but write to it only through
// scripts, so the bookkeeping statement commits in the same transaction as
// the migration it records.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TableName is the default history table
const TableName = "__shift_migrations_history"

// ErrIdempotentUnsupported is returned by repositories that cannot guard
// script commands on history state
var ErrIdempotentUnsupported = errors.New("idempotent scripts are not supported by this history repository")

// Row is one applied migration
type Row struct {
	MigrationID     string    `json:"migration_id"`
	ProductVersion  string    `json:"product_version"`
	ExecutedBy      string    `json:"executed_by,omitempty"`
	ExecutionMethod string    `json:"execution_method,omitempty"`
	AppliedAt       time.Time `json:"applied_at,omitempty"`
}

// Repository reads and scripts the history table
type Repository interface {
	// Exists reports whether the history table has been created
	Exists(ctx context.Context) (bool, error)
	// GetAppliedMigrations returns applied rows ordered by migration ID
	GetAppliedMigrations(ctx context.Context) ([]Row, error)

	GetCreateScript() string
	GetInsertScript(row Row) string
	GetDeleteScript(migrationID string) string

	// Guards wrap a script command so it only runs when the migration is
	// (or is not) recorded
	GetBeginIfExistsScript(migrationID string) (string, error)
	GetBeginIfNotExistsScript(migrationID string) (string, error)
	GetEndIfScript() (string, error)
}

// New returns the repository for a backend name
func New(backend string, db *sql.DB, schema string) (Repository, error) {
	switch strings.ToLower(backend) {
	case "postgresql", "postgres", "pgx":
		return NewPostgres(db, schema), nil
	case "sqlite", "sqlite3":
		return NewSQLite(db), nil
	default:
		return nil, fmt.Errorf("no history repository for backend %q", backend)
	}
}

func queryApplied(ctx context.Context, db *sql.DB, query string) ([]Row, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var row Row
		var executedBy, method sql.NullString
		var appliedAt interface{}
		if err := rows.Scan(&row.MigrationID, &row.ProductVersion, &executedBy, &method, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		row.ExecutedBy = executedBy.String
		row.ExecutionMethod = method.String
		row.AppliedAt = parseTime(appliedAt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// parseTime accepts both native timestamps and the text form sqlite stores
// for CURRENT_TIMESTAMP
func parseTime(v interface{}) time.Time {
	var text string
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		text = t
	case []byte:
		text = string(t)
	default:
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04:05.999999999-07:00"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// quoteIdentifier and quoteLiteral follow SQLite quoting rules
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
