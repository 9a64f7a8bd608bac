package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job := NewJob("20240101000000_init")
	_, err := uuid.Parse(job.ID)
	require.NoError(t, err)
	assert.False(t, job.SubmittedAt.IsZero())
	assert.NotEqual(t, job.ID, NewJob("").ID)
}

func TestEnsureID(t *testing.T) {
	job := &Job{ID: "fixed"}
	job.EnsureID()
	assert.Equal(t, "fixed", job.ID)
	assert.False(t, job.SubmittedAt.IsZero())

	empty := &Job{}
	empty.EnsureID()
	assert.NotEmpty(t, empty.ID)
}

func TestJob_JSON(t *testing.T) {
	data, err := json.Marshal(&Job{ID: "1", Target: "0", DryRun: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dry_run":true`)
	assert.NotContains(t, string(data), `"connection"`)
}
