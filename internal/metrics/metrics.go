// Package metrics holds the prometheus collectors shared by the executor,
// migrator, worker and HTTP API. A nil *Collector is valid and records
// nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "shift"

// Collector wraps the prometheus metrics exposed by shift. Each Collector
// owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	CommandsExecuted   *prometheus.CounterVec
	BatchDuration      prometheus.Histogram
	MigrationsApplied  *prometheus.CounterVec
	LockWaitDuration   prometheus.Histogram
	JobsProcessed      *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates a Collector under the given namespace
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		CommandsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_executed_total",
			Help:      "Total number of SQL commands executed",
		}, []string{"status", "transaction"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_batch_duration_seconds",
			Help:      "Duration of command batch execution in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MigrationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Total number of migrations applied or reverted",
		}, []string{"direction", "status"}),
		LockWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_duration_seconds",
			Help:      "Time spent waiting for the migration lock",
			Buckets:   prometheus.DefBuckets,
		}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Total number of queued apply jobs processed",
		}, []string{"status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.CommandsExecuted,
		c.BatchDuration,
		c.MigrationsApplied,
		c.LockWaitDuration,
		c.JobsProcessed,
		c.HTTPRequestsTotal,
		c.HTTPRequestLatency,
	)
	return c
}

// Registry returns the underlying prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CommandExecuted(err error, inTransaction bool) {
	if c == nil {
		return
	}
	c.CommandsExecuted.WithLabelValues(status(err), strconv.FormatBool(inTransaction)).Inc()
}

func (c *Collector) BatchFinished(d time.Duration) {
	if c == nil {
		return
	}
	c.BatchDuration.Observe(d.Seconds())
}

// MigrationFinished records one migration step. direction is "up" or "down".
func (c *Collector) MigrationFinished(direction string, err error) {
	if c == nil {
		return
	}
	c.MigrationsApplied.WithLabelValues(direction, status(err)).Inc()
}

func (c *Collector) LockAcquired(waited time.Duration) {
	if c == nil {
		return
	}
	c.LockWaitDuration.Observe(waited.Seconds())
}

func (c *Collector) JobFinished(err error) {
	if c == nil {
		return
	}
	c.JobsProcessed.WithLabelValues(status(err)).Inc()
}

func (c *Collector) HTTPRequest(method, path string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	c.HTTPRequestLatency.WithLabelValues(method, path).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
