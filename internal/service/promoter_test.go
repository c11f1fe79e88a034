package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
)

func promotableRaw(score int) *models.RawVideo {
	bandID := uuid.New()
	return &models.RawVideo{
		VideoID:       "vid-" + uuid.NewString()[:8],
		Title:         "Human Jukebox halftime",
		MatchedBandID: &bandID,
		QualityScore:  score,
		PublishedAt:   time.Now(),
	}
}

func TestPromoteOneCreatesCatalogEntry(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	events := &capturingPublisher{}
	p := NewPromoter(raws, published, events, 100, 30)

	raw := promotableRaw(72)
	raws.On("GetByVideoID", mock.Anything, raw.VideoID).Return(raw, nil)
	published.On("Promote", mock.Anything, mock.MatchedBy(func(v *models.PublishedVideo) bool {
		return v.VideoID == raw.VideoID && v.QualityScore == 72
	})).Return(true, nil)

	result, err := p.PromoteOne(context.Background(), raw.VideoID)
	require.NoError(t, err)
	assert.Equal(t, PromotionPromoted, result)

	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, EventVideoPromoted, got[0].Type)
	assert.Equal(t, raw.VideoID, got[0].VideoID)

	published.AssertExpectations(t)
}

func TestPromoteOneIdempotentOnExistingEntry(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	events := &capturingPublisher{}
	p := NewPromoter(raws, published, events, 100, 30)

	raw := promotableRaw(72)
	raws.On("GetByVideoID", mock.Anything, raw.VideoID).Return(raw, nil)
	published.On("Promote", mock.Anything, mock.Anything).Return(false, nil)

	result, err := p.PromoteOne(context.Background(), raw.VideoID)
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, result)
	assert.Empty(t, events.Events())
}

func TestPromoteOneSkipsUnmatched(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 100, 30)

	raw := &models.RawVideo{VideoID: "unmatched"}
	raws.On("GetByVideoID", mock.Anything, "unmatched").Return(raw, nil)

	result, err := p.PromoteOne(context.Background(), "unmatched")
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, result)
	published.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything)
}

func TestPromoteOneSkipsAlreadyPromoted(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 100, 30)

	raw := promotableRaw(80)
	raw.IsPromoted = true
	raws.On("GetByVideoID", mock.Anything, raw.VideoID).Return(raw, nil)

	result, err := p.PromoteOne(context.Background(), raw.VideoID)
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, result)
	published.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything)
}

func TestPromoteOneSkipsBelowQualityFloor(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 100, 30)

	raw := promotableRaw(10)
	raws.On("GetByVideoID", mock.Anything, raw.VideoID).Return(raw, nil)

	result, err := p.PromoteOne(context.Background(), raw.VideoID)
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, result)
	published.AssertNotCalled(t, "Promote", mock.Anything, mock.Anything)
}

func TestPromoteOneMissingRecordSkips(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 100, 30)

	raws.On("GetByVideoID", mock.Anything, "gone").Return(nil, db.ErrNotFound)

	result, err := p.PromoteOne(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, PromotionSkipped, result)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 100, 30)

	good := promotableRaw(60)
	bad := promotableRaw(60)
	alsoGood := promotableRaw(60)

	raws.On("ListPromotable", mock.Anything, 30, 100).
		Return([]*models.RawVideo{good, bad, alsoGood}, nil)
	published.On("Promote", mock.Anything, mock.MatchedBy(func(v *models.PublishedVideo) bool {
		return v.VideoID == bad.VideoID
	})).Return(false, assert.AnError)
	published.On("Promote", mock.Anything, mock.Anything).Return(true, nil)

	promoted, skipped, failed, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 1, failed)
}

func TestRunBatchRespectsBatchSize(t *testing.T) {
	raws := &mockRawVideoRepo{}
	published := &mockPublishedVideoRepo{}
	p := NewPromoter(raws, published, nil, 25, 40)

	raws.On("ListPromotable", mock.Anything, 40, 25).Return([]*models.RawVideo{}, nil)

	_, _, _, err := p.RunBatch(context.Background())
	require.NoError(t, err)
	raws.AssertExpectations(t)
}
