package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Southern University Human Jukebox", "southern-university-human-jukebox"},
		{"FAMU Marching 100", "famu-marching-100"},
		{"Alabama A&M Marching Maroon and White", "alabama-a-m-marching-maroon-and-white"},
		{"Bethune-Cookman Marching Wildcats", "bethune-cookman-marching-wildcats"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.name))
	}
}

func TestNewBandStub(t *testing.T) {
	stub := NewBandStub("Texas Southern Ocean of Soul")

	assert.NotEqual(t, uuid.Nil, stub.ID)
	assert.Equal(t, "texas-southern-ocean-of-soul", stub.Slug)
	assert.Equal(t, "Texas Southern Ocean of Soul", stub.Name)
	assert.True(t, stub.IsActive)
	assert.Equal(t, "Unknown", stub.City)
}

func TestRawVideoPromotable(t *testing.T) {
	bandID := uuid.New()

	unmatched := &RawVideo{}
	assert.False(t, unmatched.Promotable())

	matched := &RawVideo{MatchedBandID: &bandID}
	assert.True(t, matched.Promotable())

	promoted := &RawVideo{MatchedBandID: &bandID, IsPromoted: true}
	assert.False(t, promoted.Promotable())
}

func TestFromRawCopiesScoreVerbatim(t *testing.T) {
	bandID := uuid.New()
	opponentID := uuid.New()
	raw := &RawVideo{
		VideoID:        "abc123",
		Title:          "Human Jukebox halftime",
		MatchedBandID:  &bandID,
		OpponentBandID: &opponentID,
		QualityScore:   72,
		PublishedAt:    time.Date(2023, 9, 2, 19, 0, 0, 0, time.UTC),
		ViewCount:      120_000,
		LikeCount:      4_000,
	}

	published := FromRaw(raw)

	assert.Equal(t, raw.VideoID, published.VideoID)
	assert.Equal(t, bandID, published.BandID)
	require.NotNil(t, published.OpponentBandID)
	assert.Equal(t, opponentID, *published.OpponentBandID)
	assert.Equal(t, 72, published.QualityScore)
	assert.False(t, published.IsHidden)
	assert.Nil(t, published.HideReason)
}

func TestSyncJobDuration(t *testing.T) {
	job := NewSyncJob(ScopeAll, ModeIncremental, false)
	assert.Equal(t, JobStatusInProgress, job.Status)
	assert.NotNil(t, job.Errors)

	done := job.StartedAt.Add(90 * time.Second)
	job.CompletedAt = &done
	assert.Equal(t, 90*time.Second, job.Duration())
}
