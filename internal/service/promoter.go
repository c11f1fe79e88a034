package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Promotion outcomes.
const (
	PromotionPromoted = "promoted"
	PromotionSkipped  = "skipped"
	PromotionFailed   = "failed"
)

// Promoter copies matched raw videos into the public catalog. Promotion is
// idempotent: promoting the same video twice yields one catalog entry.
type Promoter struct {
	raws       repository.RawVideoRepository
	published  repository.PublishedVideoRepository
	events     EventPublisher
	batchSize  int
	minQuality int
}

// NewPromoter wires the promotion service.
func NewPromoter(
	raws repository.RawVideoRepository,
	published repository.PublishedVideoRepository,
	events EventPublisher,
	batchSize, minQuality int,
) *Promoter {
	if events == nil {
		events = NopPublisher{}
	}
	return &Promoter{
		raws:       raws,
		published:  published,
		events:     events,
		batchSize:  batchSize,
		minQuality: minQuality,
	}
}

// PromoteOne promotes a single raw video by external ID. A missing record,
// an unmatched or already-promoted one, and a score below the floor all
// resolve to a skip, not an error: the task terminates either way.
func (p *Promoter) PromoteOne(ctx context.Context, videoID string) (string, error) {
	raw, err := p.raws.GetByVideoID(ctx, videoID)
	if err != nil {
		if db.IsNotFound(err) {
			logger.Log.Warn("promotion target vanished", zap.String("video_id", videoID))
			metrics.PromotionResults.WithLabelValues(PromotionSkipped).Inc()
			return PromotionSkipped, nil
		}
		metrics.PromotionResults.WithLabelValues(PromotionFailed).Inc()
		return PromotionFailed, err
	}

	return p.promote(ctx, raw)
}

// RunBatch sweeps all eligible raw videos, bounded by the configured batch
// size, so nothing is stranded if a per-video task was lost. Per-video
// failures do not stop the sweep.
func (p *Promoter) RunBatch(ctx context.Context) (promoted, skipped, failed int, err error) {
	candidates, err := p.raws.ListPromotable(ctx, p.minQuality, p.batchSize)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list promotable videos: %w", err)
	}

	for _, raw := range candidates {
		result, err := p.promote(ctx, raw)
		if err != nil {
			failed++
			logger.Log.Warn("batch promotion item failed",
				zap.String("video_id", raw.VideoID),
				zap.Error(err),
			)
			continue
		}
		switch result {
		case PromotionPromoted:
			promoted++
		default:
			skipped++
		}
	}

	logger.Log.Info("promotion batch completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("promoted", promoted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return promoted, skipped, failed, nil
}

func (p *Promoter) promote(ctx context.Context, raw *models.RawVideo) (string, error) {
	if !raw.Promotable() {
		metrics.PromotionResults.WithLabelValues(PromotionSkipped).Inc()
		return PromotionSkipped, nil
	}
	if raw.QualityScore < p.minQuality {
		logger.Log.Debug("video below promotion quality floor",
			zap.String("video_id", raw.VideoID),
			zap.Int("score", raw.QualityScore),
			zap.Int("floor", p.minQuality),
		)
		metrics.PromotionResults.WithLabelValues(PromotionSkipped).Inc()
		return PromotionSkipped, nil
	}

	created, err := p.published.Promote(ctx, models.FromRaw(raw))
	if err != nil {
		metrics.PromotionResults.WithLabelValues(PromotionFailed).Inc()
		return PromotionFailed, err
	}

	if !created {
		// A catalog entry already existed; the raw record is flagged now
		// either way, so reruns converge on a skip.
		metrics.PromotionResults.WithLabelValues(PromotionSkipped).Inc()
		return PromotionSkipped, nil
	}

	metrics.PromotionResults.WithLabelValues(PromotionPromoted).Inc()
	logger.Log.Info("promoted video",
		zap.String("video_id", raw.VideoID),
		zap.String("band_id", raw.MatchedBandID.String()),
		zap.Int("score", raw.QualityScore),
	)

	event := NewCatalogEvent(EventVideoPromoted)
	event.VideoID = raw.VideoID
	event.BandID = raw.MatchedBandID
	if err := p.events.Publish(ctx, event); err != nil {
		// Best effort; the catalog write already committed.
		logger.Log.Warn("failed to publish promotion event",
			zap.String("video_id", raw.VideoID),
			zap.Error(err),
		)
	}

	return PromotionPromoted, nil
}
