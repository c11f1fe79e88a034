package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueForPriority(t *testing.T) {
	tests := []struct {
		priority int
		want     string
	}{
		{10, TierCritical},
		{9, TierCritical},
		{8, TierHigh},
		{6, TierHigh},
		{5, TierNormal},
		{3, TierNormal},
		{2, TierLow},
		{0, TierLow},
		{-1, TierLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QueueForPriority(tt.priority), "priority %d", tt.priority)
	}
}

func TestQueueWeightsCoverAllTiers(t *testing.T) {
	for _, tier := range []string{TierCritical, TierHigh, TierNormal, TierLow} {
		assert.Contains(t, QueueWeights, tier)
	}
	// Critical must dominate but never starve low.
	assert.Greater(t, QueueWeights[TierCritical], QueueWeights[TierLow])
	assert.Positive(t, QueueWeights[TierLow])
}

func TestSyncPayloadRoundTrip(t *testing.T) {
	payload, err := NewSyncTask("6e3e9c30-0000-4000-8000-000000000001", "all", "INCREMENTAL", true)
	require.NoError(t, err)

	data, err := payload.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalSyncPayload(data)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestNewSyncTaskValidation(t *testing.T) {
	_, err := NewSyncTask("", "all", "FULL", false)
	assert.Error(t, err)

	_, err = NewSyncTask("job-id", "", "FULL", false)
	assert.Error(t, err)
}

func TestNewPromoteVideoTaskValidation(t *testing.T) {
	_, err := NewPromoteVideoTask("")
	assert.Error(t, err)

	payload, err := NewPromoteVideoTask("abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", payload.VideoID)
}

func TestNewCleanupTaskValidation(t *testing.T) {
	for _, scope := range []string{"duplicates", "irrelevant", "deleted", "all"} {
		payload, err := NewCleanupTask(scope, true)
		require.NoError(t, err)
		assert.Equal(t, scope, payload.Scope)
		assert.True(t, payload.DryRun)
	}

	_, err := NewCleanupTask("everything", false)
	assert.Error(t, err)
}
