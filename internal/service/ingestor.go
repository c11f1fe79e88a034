// Package service implements the pipeline workers: ingestion, promotion,
// catalog maintenance, the stuck-job watchdog and catalog event publishing.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/matcher"
	"github.com/fieldshow/bandcatalog/internal/queue"
	"github.com/fieldshow/bandcatalog/internal/service/youtube"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// VideoSource lists videos from the external platform one page at a time.
type VideoSource interface {
	ListChannelVideos(ctx context.Context, channelID string, publishedAfter *time.Time, pageToken string) (*youtube.Page, error)
	SearchVideos(ctx context.Context, query string, publishedAfter *time.Time, pageToken string) (*youtube.Page, error)
}

// PromotionEnqueuer hands matched videos off to the promotion queue.
type PromotionEnqueuer interface {
	EnqueuePromotion(ctx context.Context, videoID string, priority int) error
}

// Ingestor runs sync jobs: it pulls fresh video metadata per band, upserts
// raw records, matches and scores them, and enqueues promotion work.
type Ingestor struct {
	source    VideoSource
	bands     repository.BandRepository
	raws      repository.RawVideoRepository
	jobs      repository.SyncJobRepository
	matcher   *matcher.Matcher
	scorer    *matcher.Scorer
	enqueuer  PromotionEnqueuer
	minResync time.Duration
}

// NewIngestor wires the ingestion service.
func NewIngestor(
	source VideoSource,
	bands repository.BandRepository,
	raws repository.RawVideoRepository,
	jobs repository.SyncJobRepository,
	m *matcher.Matcher,
	s *matcher.Scorer,
	enqueuer PromotionEnqueuer,
	minResync time.Duration,
) *Ingestor {
	return &Ingestor{
		source:    source,
		bands:     bands,
		raws:      raws,
		jobs:      jobs,
		matcher:   m,
		scorer:    s,
		enqueuer:  enqueuer,
		minResync: minResync,
	}
}

// bandSyncResult accumulates per-band counters during a run.
type bandSyncResult struct {
	found   int
	added   int
	updated int
}

// Run executes one sync job to completion and finalizes its audit record.
// Per-video failures are logged on the record and skipped; quota exhaustion,
// an open circuit and transient API failures abort the whole run.
func (s *Ingestor) Run(ctx context.Context, payload *queue.SyncPayload) error {
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("invalid job ID %q: %w", payload.JobID, err)
	}

	targets, err := s.resolveScope(ctx, payload.Scope)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, jobID, 0, 0, 0, err.Error()); markErr != nil {
			logger.Log.Error("failed to mark sync job failed", zap.Error(markErr))
		}
		return err
	}

	logger.Log.Info("sync run started",
		zap.String("job_id", payload.JobID),
		zap.String("scope", payload.Scope),
		zap.String("mode", payload.Mode),
		zap.Bool("force", payload.Force),
		zap.Int("bands", len(targets)),
	)

	total := bandSyncResult{}
	for _, band := range targets {
		result, err := s.syncBand(ctx, jobID, band, payload.Mode, payload.Force)
		total.found += result.found
		total.added += result.added
		total.updated += result.updated

		if err != nil {
			// A terminal API error (bad channel, removed resource) only
			// poisons this band; log it and move on. Quota exhaustion, an
			// open circuit and transient failures end the whole run.
			if youtube.IsTerminal(err) {
				message := fmt.Sprintf("band %s: %v", band.Slug, err)
				if appendErr := s.jobs.AppendError(ctx, jobID, message); appendErr != nil {
					logger.Log.Error("failed to record sync error", zap.Error(appendErr))
				}
				logger.Log.Warn("skipping band after terminal API error",
					zap.String("band", band.Slug),
					zap.Error(err),
				)
				continue
			}

			reason := fmt.Sprintf("sync aborted on band %s: %v", band.Slug, err)
			if markErr := s.jobs.MarkFailed(ctx, jobID, total.found, total.added, total.updated, reason); markErr != nil {
				logger.Log.Error("failed to mark sync job failed", zap.Error(markErr))
			}
			logger.Log.Warn("sync run aborted",
				zap.String("job_id", payload.JobID),
				zap.String("band", band.Slug),
				zap.Error(err),
			)
			return err
		}
	}

	if err := s.jobs.MarkCompleted(ctx, jobID, total.found, total.added, total.updated); err != nil {
		return fmt.Errorf("failed to finalize sync job: %w", err)
	}

	logger.Log.Info("sync run completed",
		zap.String("job_id", payload.JobID),
		zap.Int("found", total.found),
		zap.Int("added", total.added),
		zap.Int("updated", total.updated),
	)
	return nil
}

// resolveScope expands the scope into concrete bands. Scope is either "all",
// a band UUID, or a band slug.
func (s *Ingestor) resolveScope(ctx context.Context, scope string) ([]*models.Band, error) {
	if scope == models.ScopeAll {
		bands, err := s.bands.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active bands: %w", err)
		}
		return bands, nil
	}

	var band *models.Band
	var err error
	if id, parseErr := uuid.Parse(scope); parseErr == nil {
		band, err = s.bands.GetByID(ctx, id)
	} else {
		band, err = s.bands.GetBySlug(ctx, scope)
	}
	if err != nil {
		return nil, fmt.Errorf("unknown sync scope %q: %w", scope, err)
	}
	return []*models.Band{band}, nil
}

func (s *Ingestor) syncBand(ctx context.Context, jobID uuid.UUID, band *models.Band, mode string, force bool) (bandSyncResult, error) {
	result := bandSyncResult{}

	if !force && band.LastSyncedAt != nil && time.Since(*band.LastSyncedAt) < s.minResync {
		logger.Log.Debug("skipping recently synced band",
			zap.String("band", band.Slug),
			zap.Time("last_synced_at", *band.LastSyncedAt),
		)
		return result, nil
	}

	var publishedAfter *time.Time
	if mode == models.ModeIncremental && band.LastSyncedAt != nil {
		publishedAfter = band.LastSyncedAt
	}

	// The cursor only advances to the moment this sweep began, and only
	// after the whole sweep succeeds. An aborted run re-covers the window.
	sweepStart := time.Now()

	pageToken := ""
	for {
		page, err := s.fetchPage(ctx, band, publishedAfter, pageToken)
		if err != nil {
			return result, err
		}

		for _, video := range page.Videos {
			added, updated, err := s.processVideo(ctx, video)
			if err != nil {
				message := fmt.Sprintf("video %s: %v", video.VideoID, err)
				if appendErr := s.jobs.AppendError(ctx, jobID, message); appendErr != nil {
					logger.Log.Error("failed to record sync error", zap.Error(appendErr))
				}
				logger.Log.Warn("skipping video after error",
					zap.String("video_id", video.VideoID),
					zap.Error(err),
				)
				continue
			}
			result.found++
			if added {
				result.added++
			}
			if updated {
				result.updated++
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := s.bands.UpdateLastSyncedAt(ctx, band.ID, sweepStart); err != nil {
		return result, fmt.Errorf("failed to advance sync cursor: %w", err)
	}

	return result, nil
}

// fetchPage lists by channel when the band has one, otherwise falls back to
// a free-text search on the band's name.
func (s *Ingestor) fetchPage(ctx context.Context, band *models.Band, publishedAfter *time.Time, pageToken string) (*youtube.Page, error) {
	if band.ChannelID != nil && *band.ChannelID != "" {
		return s.source.ListChannelVideos(ctx, *band.ChannelID, publishedAfter, pageToken)
	}
	return s.source.SearchVideos(ctx, band.Name, publishedAfter, pageToken)
}

// processVideo upserts one fetched video. New videos are matched and scored
// on the way in; known videos get their engagement counters refreshed and a
// re-match only if they are still unmatched.
func (s *Ingestor) processVideo(ctx context.Context, video *youtube.Video) (added, updated bool, err error) {
	existing, err := s.raws.GetByVideoID(ctx, video.VideoID)
	switch {
	case err == nil:
		if err := s.raws.UpdateStats(ctx, video.VideoID, video.ViewCount, video.LikeCount); err != nil {
			return false, false, err
		}
		if existing.MatchedBandID == nil {
			if err := s.matchAndStore(ctx, video); err != nil {
				return false, false, err
			}
		} else if existing.Promotable() {
			s.enqueuePromotion(ctx, video.VideoID)
		}
		return false, true, nil

	case db.IsNotFound(err):
		record := newRawVideo(video)
		if err := s.raws.Create(ctx, record); err != nil {
			// A concurrent worker got there first; treat as an update.
			if db.IsDuplicateKey(err) {
				return false, true, s.raws.UpdateStats(ctx, video.VideoID, video.ViewCount, video.LikeCount)
			}
			return false, false, err
		}
		if err := s.matchAndStore(ctx, video); err != nil {
			return false, false, err
		}
		return true, false, nil

	default:
		return false, false, err
	}
}

// matchAndStore runs the matcher and scorer and persists a hit. A miss is
// not an error; the video stays unmatched until a later run.
func (s *Ingestor) matchAndStore(ctx context.Context, video *youtube.Video) error {
	match, err := s.matcher.Match(ctx, video.Title, video.Description)
	if err != nil {
		return err
	}
	if match == nil {
		return nil
	}

	score := s.scorer.Score(video.ViewCount, video.LikeCount, video.ChannelID, match)
	if err := s.raws.UpdateMatch(ctx, video.VideoID, match.BandID, match.OpponentBandID, score); err != nil {
		return err
	}

	logger.Log.Debug("matched video",
		zap.String("video_id", video.VideoID),
		zap.String("band", match.BandName),
		zap.Int("score", score),
		zap.Bool("has_opponent", match.OpponentBandID != nil),
	)

	s.enqueuePromotion(ctx, video.VideoID)
	return nil
}

// enqueuePromotion is best effort: the periodic batch sweep picks up
// anything a failed enqueue leaves behind.
func (s *Ingestor) enqueuePromotion(ctx context.Context, videoID string) {
	if err := s.enqueuer.EnqueuePromotion(ctx, videoID, queue.PriorityPromotion); err != nil {
		logger.Log.Warn("failed to enqueue promotion",
			zap.String("video_id", videoID),
			zap.Error(err),
		)
	}
}

func newRawVideo(video *youtube.Video) *models.RawVideo {
	now := time.Now()
	return &models.RawVideo{
		VideoID:         video.VideoID,
		Title:           video.Title,
		Description:     video.Description,
		ChannelID:       video.ChannelID,
		ChannelTitle:    video.ChannelTitle,
		ThumbnailURL:    video.ThumbnailURL,
		DurationSeconds: video.DurationSeconds,
		PublishedAt:     video.PublishedAt,
		ViewCount:       video.ViewCount,
		LikeCount:       video.LikeCount,
		SyncStatus:      models.SyncStatusSynced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
