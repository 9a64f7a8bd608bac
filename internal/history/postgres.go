package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Postgres keeps history in a table of a configurable schema
type Postgres struct {
	db     *sql.DB
	schema string
	table  string
}

// NewPostgres creates a repository. An empty schema means "public".
func NewPostgres(db *sql.DB, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{db: db, schema: schema, table: TableName}
}

func (p *Postgres) qualifiedTable() string {
	return fmt.Sprintf("%s.%s", pq.QuoteIdentifier(p.schema), pq.QuoteIdentifier(p.table))
}

func (p *Postgres) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)
	`, p.schema, p.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check history table: %w", err)
	}
	return exists, nil
}

func (p *Postgres) GetAppliedMigrations(ctx context.Context) ([]Row, error) {
	return queryApplied(ctx, p.db, fmt.Sprintf(
		`SELECT migration_id, product_version, executed_by, execution_method, applied_at FROM %s ORDER BY migration_id`,
		p.qualifiedTable()))
}

func (p *Postgres) GetCreateScript() string {
	script := ""
	if p.schema != "public" {
		script = fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;\n", pq.QuoteIdentifier(p.schema))
	}
	return script + fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    migration_id VARCHAR(150) NOT NULL,
    product_version VARCHAR(32) NOT NULL,
    executed_by VARCHAR(255),
    execution_method VARCHAR(20) NOT NULL DEFAULT 'cli',
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT %s PRIMARY KEY (migration_id)
);`, p.qualifiedTable(), pq.QuoteIdentifier("pk_"+p.table))
}

func (p *Postgres) GetInsertScript(row Row) string {
	return fmt.Sprintf(`INSERT INTO %s (migration_id, product_version, executed_by, execution_method)
VALUES (%s, %s, %s, %s);`,
		p.qualifiedTable(),
		pq.QuoteLiteral(row.MigrationID),
		pq.QuoteLiteral(row.ProductVersion),
		pq.QuoteLiteral(defaultString(row.ExecutedBy, "system")),
		pq.QuoteLiteral(defaultString(row.ExecutionMethod, "cli")))
}

func (p *Postgres) GetDeleteScript(migrationID string) string {
	return fmt.Sprintf(`DELETE FROM %s
WHERE migration_id = %s;`, p.qualifiedTable(), pq.QuoteLiteral(migrationID))
}

func (p *Postgres) guard(migrationID, test string) string {
	return fmt.Sprintf(`DO $SHIFT$
BEGIN
    IF %s(SELECT 1 FROM %s WHERE migration_id = %s) THEN`, test, p.qualifiedTable(), pq.QuoteLiteral(migrationID))
}

func (p *Postgres) GetBeginIfExistsScript(migrationID string) (string, error) {
	return p.guard(migrationID, "EXISTS"), nil
}

func (p *Postgres) GetBeginIfNotExistsScript(migrationID string) (string, error) {
	return p.guard(migrationID, "NOT EXISTS"), nil
}

func (p *Postgres) GetEndIfScript() (string, error) {
	return "    END IF;\nEND $SHIFT$;", nil
}
