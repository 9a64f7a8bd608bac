package history

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLite keeps history in the main database. It has no procedural blocks,
// so script guards are unavailable.
type SQLite struct {
	db    *sql.DB
	table string
}

// NewSQLite creates a repository
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, table: TableName}
}

func (s *SQLite) Exists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check history table: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) GetAppliedMigrations(ctx context.Context) ([]Row, error) {
	return queryApplied(ctx, s.db, fmt.Sprintf(
		`SELECT migration_id, product_version, executed_by, execution_method, applied_at FROM %s ORDER BY migration_id`,
		quoteIdentifier(s.table)))
}

func (s *SQLite) GetCreateScript() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    migration_id TEXT NOT NULL CONSTRAINT %s PRIMARY KEY,
    product_version TEXT NOT NULL,
    executed_by TEXT,
    execution_method TEXT NOT NULL DEFAULT 'cli',
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`, quoteIdentifier(s.table), quoteIdentifier("pk_"+s.table))
}

func (s *SQLite) GetInsertScript(row Row) string {
	return fmt.Sprintf(`INSERT INTO %s (migration_id, product_version, executed_by, execution_method)
VALUES (%s, %s, %s, %s);`,
		quoteIdentifier(s.table),
		quoteLiteral(row.MigrationID),
		quoteLiteral(row.ProductVersion),
		quoteLiteral(defaultString(row.ExecutedBy, "system")),
		quoteLiteral(defaultString(row.ExecutionMethod, "cli")))
}

func (s *SQLite) GetDeleteScript(migrationID string) string {
	return fmt.Sprintf(`DELETE FROM %s
WHERE migration_id = %s;`, quoteIdentifier(s.table), quoteLiteral(migrationID))
}

func (s *SQLite) GetBeginIfExistsScript(string) (string, error) {
	return "", ErrIdempotentUnsupported
}

func (s *SQLite) GetBeginIfNotExistsScript(string) (string, error) {
	return "", ErrIdempotentUnsupported
}

func (s *SQLite) GetEndIfScript() (string, error) {
	return "", ErrIdempotentUnsupported
}
