// Package executor runs batches of SQL commands against a connection,
// managing the ambient transaction around them.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
)

// ErrSuppressedInUserTransaction is returned when a batch containing a
// transaction-suppressed command is run under a caller-owned transaction
var ErrSuppressedInUserTransaction = errors.New("transaction-suppressed command cannot run inside a user transaction")

// Executor executes command batches
type Executor struct {
	metrics *metrics.Collector
}

// NewExecutor creates an executor. collector may be nil.
func NewExecutor(collector *metrics.Collector) *Executor {
	return &Executor{metrics: collector}
}

// Execute runs commands in order inside one ambient transaction. A
// suppressed command commits the open transaction first and runs on its
// own; the next regular command opens a new transaction. The connection is
// always closed, and on failure the open transaction is rolled back.
func (e *Executor) Execute(ctx context.Context, commands []Command, conn Connection) (err error) {
	userTx := conn.Transaction()
	if userTx != nil {
		for i, cmd := range commands {
			if cmd.TransactionSuppressed {
				return fmt.Errorf("command %d: %w", i, ErrSuppressedInUserTransaction)
			}
		}
	}

	start := time.Now()
	defer func() { e.metrics.BatchFinished(time.Since(start)) }()

	if err := conn.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close connection: %w", closeErr)
		}
	}()

	var tx Tx
	defer func() {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Warnf("Rollback after failed batch: %v", rbErr)
			}
		}
	}()

	for i, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		var current Tx
		switch {
		case userTx != nil:
			current = userTx
		case cmd.TransactionSuppressed:
			if tx != nil {
				if err := tx.Commit(); err != nil {
					tx = nil
					return fmt.Errorf("failed to commit transaction before command %d: %w", i, err)
				}
				tx = nil
			}
		default:
			if tx == nil {
				tx, err = conn.Begin(ctx)
				if err != nil {
					tx = nil
					return fmt.Errorf("failed to begin transaction: %w", err)
				}
			}
			current = tx
		}

		logger.Debugf("Executing command %d/%d (transaction=%t)", i+1, len(commands), current != nil)
		execErr := conn.Exec(ctx, current, cmd.Text)
		e.metrics.CommandExecuted(execErr, current != nil)
		if execErr != nil {
			return fmt.Errorf("command %d failed: %w", i, execErr)
		}
	}

	if tx != nil {
		commitErr := tx.Commit()
		tx = nil
		if commitErr != nil {
			return fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}
	return nil
}
