package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/service/youtube"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

func init() {
	_ = logger.Init("error", "")
}

// Mock repositories

type mockBandRepo struct {
	mock.Mock
}

func (m *mockBandRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Band, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Band), args.Error(1)
}

func (m *mockBandRepo) GetBySlug(ctx context.Context, slug string) (*models.Band, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Band), args.Error(1)
}

func (m *mockBandRepo) UpsertStub(ctx context.Context, band *models.Band) (uuid.UUID, error) {
	args := m.Called(ctx, band)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockBandRepo) ListActive(ctx context.Context) ([]*models.Band, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Band), args.Error(1)
}

func (m *mockBandRepo) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	args := m.Called(ctx, id, syncedAt)
	return args.Error(0)
}

type mockRawVideoRepo struct {
	mock.Mock
}

func (m *mockRawVideoRepo) GetByVideoID(ctx context.Context, videoID string) (*models.RawVideo, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RawVideo), args.Error(1)
}

func (m *mockRawVideoRepo) Create(ctx context.Context, video *models.RawVideo) error {
	args := m.Called(ctx, video)
	return args.Error(0)
}

func (m *mockRawVideoRepo) UpdateStats(ctx context.Context, videoID string, viewCount, likeCount int64) error {
	args := m.Called(ctx, videoID, viewCount, likeCount)
	return args.Error(0)
}

func (m *mockRawVideoRepo) UpdateMatch(ctx context.Context, videoID string, bandID uuid.UUID, opponentID *uuid.UUID, score int) error {
	args := m.Called(ctx, videoID, bandID, opponentID, score)
	return args.Error(0)
}

func (m *mockRawVideoRepo) ListPromotable(ctx context.Context, minQualityScore, limit int) ([]*models.RawVideo, error) {
	args := m.Called(ctx, minQualityScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RawVideo), args.Error(1)
}

func (m *mockRawVideoRepo) CountDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockRawVideoRepo) DeleteDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockPublishedVideoRepo struct {
	mock.Mock
}

func (m *mockPublishedVideoRepo) GetByVideoID(ctx context.Context, videoID string) (*models.PublishedVideo, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublishedVideo), args.Error(1)
}

func (m *mockPublishedVideoRepo) Promote(ctx context.Context, video *models.PublishedVideo) (bool, error) {
	args := m.Called(ctx, video)
	return args.Bool(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) CountDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) DeleteDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) CountLowQuality(ctx context.Context, threshold int) (int, error) {
	args := m.Called(ctx, threshold)
	return args.Int(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) HideLowQuality(ctx context.Context, threshold int) (int, error) {
	args := m.Called(ctx, threshold)
	return args.Int(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) CountStale(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockPublishedVideoRepo) HideStale(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type mockSyncJobRepo struct {
	mock.Mock
}

func (m *mockSyncJobRepo) Create(ctx context.Context, job *models.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockSyncJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncJob), args.Error(1)
}

func (m *mockSyncJobRepo) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	args := m.Called(ctx, id, taskID)
	return args.Error(0)
}

func (m *mockSyncJobRepo) AppendError(ctx context.Context, id uuid.UUID, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

func (m *mockSyncJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, found, added, updated int) error {
	args := m.Called(ctx, id, found, added, updated)
	return args.Error(0)
}

func (m *mockSyncJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, found, added, updated int, reason string) error {
	args := m.Called(ctx, id, found, added, updated, reason)
	return args.Error(0)
}

func (m *mockSyncJobRepo) List(ctx context.Context, limit, offset int) ([]*models.SyncJob, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncJob), args.Error(1)
}

func (m *mockSyncJobRepo) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.SyncJob, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncJob), args.Error(1)
}

// Mock video source

type mockVideoSource struct {
	mock.Mock
}

func (m *mockVideoSource) ListChannelVideos(ctx context.Context, channelID string, publishedAfter *time.Time, pageToken string) (*youtube.Page, error) {
	args := m.Called(ctx, channelID, publishedAfter, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*youtube.Page), args.Error(1)
}

func (m *mockVideoSource) SearchVideos(ctx context.Context, query string, publishedAfter *time.Time, pageToken string) (*youtube.Page, error) {
	args := m.Called(ctx, query, publishedAfter, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*youtube.Page), args.Error(1)
}

// Mock promotion enqueuer

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueuePromotion(ctx context.Context, videoID string, priority int) error {
	args := m.Called(ctx, videoID, priority)
	return args.Error(0)
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []*CatalogEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event *CatalogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) IsHealthy() bool { return true }
func (p *capturingPublisher) Close() error    { return nil }

func (p *capturingPublisher) Events() []*CatalogEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*CatalogEvent, len(p.events))
	copy(out, p.events)
	return out
}
