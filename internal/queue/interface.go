// Package queue carries asynchronous apply jobs between the API and the
// workers that run the migrator.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job asks a worker to bring a database to a target
type Job struct {
	ID string `json:"id"`
	// Target is "" for the latest unit, "0" to revert everything, or a unit
	// ID or name
	Target     string `json:"target,omitempty"`
	Connection string `json:"connection,omitempty"`
	// DryRun renders the script instead of executing it
	DryRun      bool                   `json:"dry_run,omitempty"`
	ExecutedBy  string                 `json:"executed_by,omitempty"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewJob creates a job with a fresh ID
func NewJob(target string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Target:      target,
		SubmittedAt: time.Now().UTC(),
	}
}

// EnsureID assigns an ID to jobs published without one
func (j *Job) EnsureID() {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.SubmittedAt.IsZero() {
		j.SubmittedAt = time.Now().UTC()
	}
}

// JobResult represents the result of a migration job
type JobResult struct {
	JobID    string   `json:"job_id"`
	Success  bool     `json:"success"`
	Applied  []string `json:"applied"`
	Reverted []string `json:"reverted"`
	Script   string   `json:"script,omitempty"`
	Errors   []string `json:"errors"`
}

// Producer publishes migration jobs to the queue
type Producer interface {
	// PublishJob publishes a migration job to the queue
	PublishJob(ctx context.Context, job *Job) error

	// Close closes the producer connection
	Close() error
}

// Consumer consumes migration jobs from the queue
type Consumer interface {
	// Consume starts consuming jobs from the queue
	// The handler function is called for each job
	Consume(ctx context.Context, handler JobHandler) error

	// Close closes the consumer connection
	Close() error
}

// JobHandler processes a migration job
type JobHandler func(ctx context.Context, job *Job) (*JobResult, error)

// Queue provides both producer and consumer capabilities
type Queue interface {
	Producer
	Consumer
}
