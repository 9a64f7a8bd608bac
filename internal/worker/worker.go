// Package worker consumes apply jobs from the queue and runs them through
// the migrator
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/toolsascode/shift/internal/executor"
	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/metrics"
	"github.com/toolsascode/shift/internal/migrator"
	"github.com/toolsascode/shift/internal/queue"
)

// Runner is the part of the migrator a worker drives
type Runner interface {
	Migrate(ctx context.Context, target string) (*migrator.Result, error)
	DryRun(ctx context.Context, target string, opts migrator.ScriptOptions) (string, error)
}

// Worker processes migration jobs from the queue
type Worker struct {
	runner  Runner
	queue   queue.Queue
	results *Results
	metrics *metrics.Collector
}

// NewWorker creates a new migration worker. results and collector may be nil.
func NewWorker(runner Runner, q queue.Queue, results *Results, collector *metrics.Collector) *Worker {
	return &Worker{
		runner:  runner,
		queue:   q,
		results: results,
		metrics: collector,
	}
}

// Start consumes jobs until ctx is done
func (w *Worker) Start(ctx context.Context) error {
	logger.Info("Starting migration worker...")
	return w.queue.Consume(ctx, w.ProcessJob)
}

// ProcessJob runs one job. A failed migration yields an unsuccessful result
// and the error.
func (w *Worker) ProcessJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	logger.WithFields(map[string]interface{}{
		"job_id": job.ID,
		"target": job.Target,
	}).Info("Processing migration job")

	executedBy := job.ExecutedBy
	if executedBy == "" {
		executedBy = "system"
	}
	ctx = executor.SetExecutionContext(ctx, executedBy, "queue", job.Metadata)

	w.results.put(job.ID, &queue.JobResult{JobID: job.ID}, StatusRunning)

	result, err := w.run(ctx, job)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.Success = err == nil
	w.metrics.JobFinished(err)

	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	w.results.put(job.ID, result, status)
	return result, err
}

func (w *Worker) run(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	result := &queue.JobResult{JobID: job.ID}

	if job.DryRun {
		script, err := w.runner.DryRun(ctx, job.Target, migrator.ScriptOptions{})
		result.Script = script
		return result, err
	}

	res, err := w.runner.Migrate(ctx, job.Target)
	if res != nil {
		result.Applied = res.Applied
		result.Reverted = res.Reverted
	}
	return result, err
}

// Stop stops the worker
func (w *Worker) Stop() error {
	logger.Info("Stopping migration worker...")
	return w.queue.Close()
}

// Job states
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobStatus is the last known state of a job
type JobStatus struct {
	Status    string           `json:"status"`
	Result    *queue.JobResult `json:"result,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Results remembers job outcomes for the status endpoint when the worker
// runs in the server process. A nil *Results records nothing.
type Results struct {
	mu   sync.RWMutex
	jobs map[string]JobStatus
}

// NewResults creates an empty store
func NewResults() *Results {
	return &Results{jobs: make(map[string]JobStatus)}
}

// Queued marks a job as accepted
func (r *Results) Queued(jobID string) {
	r.put(jobID, nil, StatusQueued)
}

func (r *Results) put(jobID string, result *queue.JobResult, status string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobID] = JobStatus{Status: status, Result: result, UpdatedAt: time.Now().UTC()}
}

// Get returns the state of a job
func (r *Results) Get(jobID string) (JobStatus, bool) {
	if r == nil {
		return JobStatus{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.jobs[jobID]
	return s, ok
}
