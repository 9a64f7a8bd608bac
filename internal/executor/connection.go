package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// SQLConnection adapts a database/sql pool to Connection. Commands run on a
// single pooled connection between Open and Close so session state (search
// path, temp tables) is shared by the whole batch.
type SQLConnection struct {
	db *sql.DB

	mu     sync.Mutex
	conn   *sql.Conn
	userTx *sql.Tx
}

// NewSQLConnection wraps db. The pool is not closed by Close.
func NewSQLConnection(db *sql.DB) *SQLConnection {
	return &SQLConnection{db: db}
}

// UseTransaction enlists a transaction owned by the caller. Every command
// then runs on it and commit is left to the caller.
func (c *SQLConnection) UseTransaction(tx *sql.Tx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userTx = tx
}

// DB returns the wrapped pool
func (c *SQLConnection) DB() *sql.DB {
	return c.db
}

func (c *SQLConnection) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *SQLConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *SQLConnection) Transaction() Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userTx == nil {
		return nil
	}
	return c.userTx
}

func (c *SQLConnection) Begin(ctx context.Context) (Tx, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, errors.New("connection is not open")
	}
	return conn.BeginTx(ctx, nil)
}

func (c *SQLConnection) Exec(ctx context.Context, tx Tx, text string) error {
	if tx != nil {
		sqlTx, ok := tx.(*sql.Tx)
		if !ok {
			return fmt.Errorf("unsupported transaction type %T", tx)
		}
		_, err := sqlTx.ExecContext(ctx, text)
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("connection is not open")
	}
	_, err := conn.ExecContext(ctx, text)
	return err
}
