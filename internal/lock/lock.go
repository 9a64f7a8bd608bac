// Package lock serializes migrators that target the same database. Locks
// are keyed by a string, usually the database name.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
)

// Locker provides mutual exclusion across processes or nodes
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done. The
	// returned release function must be called exactly once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Config selects and configures a Locker
type Config struct {
	Backend string        `yaml:"backend"` // "postgresql", "sqlite", "etcd" or "none"
	Key     string        `yaml:"key"`
	Etcd    EtcdConfig    `yaml:"etcd"`
	Timeout time.Duration `yaml:"timeout"`
}

// New builds the Locker described by cfg. db is used by the database-backed
// lockers and may be nil for etcd and none.
func New(cfg Config, db *sql.DB) (Locker, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return Noop{}, nil
	case "postgresql", "postgres", "pgx":
		if db == nil {
			return nil, fmt.Errorf("postgres lock requires a database")
		}
		return NewPostgres(db), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	case "etcd":
		return NewEtcd(cfg.Etcd)
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// Noop never blocks
type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Instrumented records how long callers wait for the lock
type Instrumented struct {
	Locker  Locker
	Metrics *metrics.Collector
}

func (l *Instrumented) Acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	release, err := l.Locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	waited := time.Since(start)
	l.Metrics.LockAcquired(waited)
	logger.Debugf("Acquired migration lock %q after %s", key, waited)
	return release, nil
}

// hashKey maps a lock key to a positive int64 with FNV-1a
func hashKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
