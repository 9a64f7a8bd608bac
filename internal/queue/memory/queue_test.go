package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolsascode/shift/internal/queue"
)

func TestQueue_DeliversInOrder(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()

	require.NoError(t, q.PublishJob(ctx, &queue.Job{Target: "a"}))
	require.NoError(t, q.PublishJob(ctx, &queue.Job{Target: "b"}))
	require.NoError(t, q.Close())

	var targets []string
	err := q.Consume(ctx, func(_ context.Context, job *queue.Job) (*queue.JobResult, error) {
		assert.NotEmpty(t, job.ID)
		targets = append(targets, job.Target)
		return &queue.JobResult{JobID: job.ID, Success: true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, targets)
}

func TestQueue_HandlerErrorsDoNotStopConsumer(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.PublishJob(ctx, &queue.Job{ID: "1"}))
	require.NoError(t, q.PublishJob(ctx, &queue.Job{ID: "2"}))
	require.NoError(t, q.Close())

	seen := 0
	err := q.Consume(ctx, func(context.Context, *queue.Job) (*queue.JobResult, error) {
		seen++
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.PublishJob(context.Background(), &queue.Job{}), ErrClosed)
}

func TestQueue_ContextCancellation(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.PublishJob(context.Background(), &queue.Job{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// buffer is full
	assert.ErrorIs(t, q.PublishJob(ctx, &queue.Job{}), context.DeadlineExceeded)

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	err := q.Consume(ctx2, func(context.Context, *queue.Job) (*queue.JobResult, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}
