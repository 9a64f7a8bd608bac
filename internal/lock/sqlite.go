package lock

import (
	"context"
	"fmt"
	"sync"
)

// SQLite serializes migrators within one process. Across processes the
// database file lock already serializes writers.
type SQLite struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewSQLite creates a SQLite locker
func NewSQLite() *SQLite {
	return &SQLite{slots: make(map[string]chan struct{})}
}

func (l *SQLite) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

// Acquire waits for the key's slot, honoring ctx cancellation
func (l *SQLite) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.slot(key)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire sqlite lock: %w", ctx.Err())
	}
}
