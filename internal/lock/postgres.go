package lock

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/toolsascode/shift/internal/logger"
)

// Postgres uses session-level advisory locks. The lock lives on one pooled
// connection, which is held until release.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres locker
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (l *Postgres) Acquire(ctx context.Context, key string) (func(), error) {
	id := hashKey(key)

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, id); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pg_advisory_lock(%d): %w", id, err)
	}

	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, id); err != nil {
			logger.Warnf("pg_advisory_unlock(%d): %v", id, err)
		}
		_ = conn.Close()
	}, nil
}
