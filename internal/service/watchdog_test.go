package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fieldshow/bandcatalog/internal/db/models"
)

func stuckJob(runningFor time.Duration) *models.SyncJob {
	return &models.SyncJob{
		ID:        uuid.New(),
		Scope:     models.ScopeAll,
		Mode:      models.ModeIncremental,
		Status:    models.JobStatusInProgress,
		StartedAt: time.Now().Add(-runningFor),
	}
}

func TestSweepUsesThresholdCutoff(t *testing.T) {
	jobs := &mockSyncJobRepo{}
	threshold := 2 * time.Hour
	w := NewWatchdog(jobs, threshold)

	jobs.On("ListStuck", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().Add(-threshold)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return([]*models.SyncJob{}, nil)

	count := w.Sweep(context.Background())
	assert.Equal(t, 0, count)
	jobs.AssertExpectations(t)
}

func TestSweepCountsStuckJobs(t *testing.T) {
	jobs := &mockSyncJobRepo{}
	w := NewWatchdog(jobs, time.Hour)

	jobs.On("ListStuck", mock.Anything, mock.Anything).Return([]*models.SyncJob{
		stuckJob(90 * time.Minute),
		stuckJob(3 * time.Hour),
	}, nil)

	count := w.Sweep(context.Background())
	assert.Equal(t, 2, count)
}

func TestSweepSwallowsRepositoryErrors(t *testing.T) {
	jobs := &mockSyncJobRepo{}
	w := NewWatchdog(jobs, time.Hour)

	jobs.On("ListStuck", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	count := w.Sweep(context.Background())
	assert.Equal(t, 0, count)
}

func TestNewWatchdogIntervalFloor(t *testing.T) {
	w := NewWatchdog(&mockSyncJobRepo{}, 2*time.Minute)
	assert.Equal(t, time.Minute, w.interval)

	w = NewWatchdog(&mockSyncJobRepo{}, 8*time.Hour)
	assert.Equal(t, 2*time.Hour, w.interval)
}
