// Package memory implements the job queue in process, for single-node
// deployments where the server runs its own worker
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/queue"
)

// ErrClosed is returned when publishing to a closed queue
var ErrClosed = errors.New("queue is closed")

// DefaultCapacity is the buffer size used when NewQueue gets zero
const DefaultCapacity = 64

// Queue is a buffered channel of jobs
type Queue struct {
	jobs   chan *queue.Job
	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue that buffers up to capacity jobs
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{jobs: make(chan *queue.Job, capacity)}
}

// PublishJob enqueues a job, blocking while the buffer is full
func (q *Queue) PublishJob(ctx context.Context, job *queue.Job) error {
	job.EnsureID()

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		logger.Debugf("Queued migration job %s", job.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume handles jobs until ctx is done or the queue is closed
func (q *Queue) Consume(ctx context.Context, handler queue.JobHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.jobs:
			if !ok {
				return nil
			}
			if _, err := handler(ctx, job); err != nil {
				logger.Errorf("Failed to process migration job %s: %v", job.ID, err)
			}
		}
	}
}

// Close stops accepting jobs. Buffered jobs are still delivered.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}
