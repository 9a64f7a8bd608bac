package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/toolsascode/shift/internal/logger"
)

// EtcdConfig configures the etcd locker
type EtcdConfig struct {
	Endpoints string `yaml:"endpoints"` // comma-separated host:port list
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Timeout   string `yaml:"timeout"` // dial timeout, e.g. "5s"
	Prefix    string `yaml:"prefix"`
	TTL       int    `yaml:"ttl"` // session lease in seconds
}

func (c EtcdConfig) endpoints() []string {
	var out []string
	for _, ep := range strings.Split(c.Endpoints, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	if len(out) == 0 {
		out = []string{"localhost:2379"}
	}
	return out
}

func (c EtcdConfig) dialTimeout() time.Duration {
	if c.Timeout != "" {
		if parsed, err := time.ParseDuration(c.Timeout); err == nil {
			return parsed
		}
	}
	return 5 * time.Second
}

func (c EtcdConfig) prefix() string {
	p := c.Prefix
	if p == "" {
		p = "/shift/locks"
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Etcd holds a concurrency.Mutex per Acquire. Each hold gets its own lease
// so a crashed holder's lock expires after TTL.
type Etcd struct {
	client *clientv3.Client
	cfg    EtcdConfig
}

// NewEtcd creates the etcd client. The client connects lazily.
func NewEtcd(cfg EtcdConfig) (*Etcd, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.endpoints(),
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: cfg.dialTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &Etcd{client: client, cfg: cfg}, nil
}

func (l *Etcd) Acquire(ctx context.Context, key string) (func(), error) {
	ttl := l.cfg.TTL
	if ttl <= 0 {
		ttl = 60
	}
	session, err := concurrency.NewSession(l.client, concurrency.WithTTL(ttl), concurrency.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to open etcd session: %w", err)
	}

	mutex := concurrency.NewMutex(session, l.cfg.prefix()+key)
	if err := mutex.Lock(ctx); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", key, err)
	}

	return func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), l.cfg.dialTimeout())
		defer cancel()
		if err := mutex.Unlock(unlockCtx); err != nil {
			logger.Warnf("Failed to unlock %s: %v", key, err)
		}
		_ = session.Close()
	}, nil
}

// Close closes the etcd client
func (l *Etcd) Close() error {
	return l.client.Close()
}
