package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusSucceeded.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestJobStatusCanTransition(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		ok   bool
	}{
		{JobStatusQueued, JobStatusRunning, true},
		{JobStatusQueued, JobStatusFailed, true},
		{JobStatusQueued, JobStatusSucceeded, true},
		{JobStatusRunning, JobStatusSucceeded, true},
		{JobStatusRunning, JobStatusFailed, true},
		{JobStatusRunning, JobStatusQueued, false},
		{JobStatusSucceeded, JobStatusFailed, false},
		{JobStatusSucceeded, JobStatusRunning, false},
		{JobStatusFailed, JobStatusSucceeded, false},
		{JobStatusFailed, JobStatusRunning, false},
		{JobStatusQueued, JobStatusQueued, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
