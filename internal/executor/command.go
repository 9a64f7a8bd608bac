package executor

import (
	"context"
	"encoding/json"
)

// Command is one SQL statement ready to run
type Command struct {
	Text string `json:"text" yaml:"text"`
	// TransactionSuppressed commands must run outside any transaction
	TransactionSuppressed bool `json:"transaction_suppressed,omitempty" yaml:"transaction_suppressed,omitempty"`
}

// Tx is the part of a database transaction the executor drives
type Tx interface {
	Commit() error
	Rollback() error
}

// Connection is a database connection commands are executed on
type Connection interface {
	Open(ctx context.Context) error
	Close() error
	// Transaction returns the transaction owned by the caller, or nil
	Transaction() Tx
	Begin(ctx context.Context) (Tx, error)
	// Exec runs text inside tx, or directly on the connection when tx is nil
	Exec(ctx context.Context, tx Tx, text string) error
}

// Context keys for execution metadata
type contextKey string

const (
	executedByKey       contextKey = "executed_by"
	executionMethodKey  contextKey = "execution_method"
	executionContextKey contextKey = "execution_context"
)

// SetExecutionContext records who triggered an execution and how
func SetExecutionContext(ctx context.Context, executedBy, executionMethod string, executionContext map[string]interface{}) context.Context {
	ctx = context.WithValue(ctx, executedByKey, executedBy)
	ctx = context.WithValue(ctx, executionMethodKey, executionMethod)
	if executionContext != nil {
		ctxBytes, _ := json.Marshal(executionContext)
		ctx = context.WithValue(ctx, executionContextKey, string(ctxBytes))
	}
	return ctx
}

// GetExecutionContext extracts execution metadata, defaulting to a
// system-triggered CLI run
func GetExecutionContext(ctx context.Context) (executedBy, executionMethod, executionContext string) {
	executedBy = "system"
	executionMethod = "cli"

	if s, ok := ctx.Value(executedByKey).(string); ok {
		executedBy = s
	}
	if s, ok := ctx.Value(executionMethodKey).(string); ok {
		executionMethod = s
	}
	if s, ok := ctx.Value(executionContextKey).(string); ok {
		executionContext = s
	}
	return executedBy, executionMethod, executionContext
}
