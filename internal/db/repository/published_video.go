package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
)

// PublishedVideoRepository defines operations for the public catalog table.
type PublishedVideoRepository interface {
	// GetByVideoID retrieves a published video by its external ID.
	GetByVideoID(ctx context.Context, videoID string) (*models.PublishedVideo, error)

	// Promote atomically inserts the published record and flags the source
	// raw video as promoted in a single transaction. It returns false when a
	// published record with the same video ID already exists; the raw video
	// is still flagged so reruns converge.
	Promote(ctx context.Context, video *models.PublishedVideo) (bool, error)

	// CountDuplicates counts published records sharing a band and title with
	// an earlier-created record.
	CountDuplicates(ctx context.Context) (int, error)

	// DeleteDuplicates removes all but the earliest-created record among
	// published records sharing a band and title. Returns the number removed.
	DeleteDuplicates(ctx context.Context) (int, error)

	// CountLowQuality counts visible records below the quality threshold.
	CountLowQuality(ctx context.Context, threshold int) (int, error)

	// HideLowQuality hides visible records below the quality threshold.
	// Returns the number hidden.
	HideLowQuality(ctx context.Context, threshold int) (int, error)

	// CountStale counts visible records untouched since the cutoff.
	CountStale(ctx context.Context, cutoff time.Time) (int, error)

	// HideStale hides visible records untouched since the cutoff. Returns
	// the number hidden.
	HideStale(ctx context.Context, cutoff time.Time) (int, error)
}

type publishedVideoRepository struct {
	pool *pgxpool.Pool
}

// NewPublishedVideoRepository creates a new PublishedVideoRepository.
func NewPublishedVideoRepository(pool *pgxpool.Pool) PublishedVideoRepository {
	return &publishedVideoRepository{pool: pool}
}

const publishedVideoColumns = `video_id, band_id, opponent_band_id, title, description, thumbnail_url,
	duration_seconds, published_at, view_count, like_count, quality_score, is_hidden, hide_reason,
	created_at, updated_at`

func (r *publishedVideoRepository) GetByVideoID(ctx context.Context, videoID string) (*models.PublishedVideo, error) {
	query := `SELECT ` + publishedVideoColumns + ` FROM published_videos WHERE video_id = $1`

	video, err := scanPublishedVideo(r.pool.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get published video by id")
	}
	return video, nil
}

func (r *publishedVideoRepository) Promote(ctx context.Context, video *models.PublishedVideo) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, db.WrapError(err, "begin promotion")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// ON CONFLICT DO NOTHING turns a race with another worker into a clean
	// zero-row insert instead of a failed transaction; the video_id primary
	// key is the correctness boundary.
	insert := `
		INSERT INTO published_videos (
			video_id, band_id, opponent_band_id, title, description, thumbnail_url,
			duration_seconds, published_at, view_count, like_count, quality_score,
			is_hidden, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, $12, $13)
		ON CONFLICT (video_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insert,
		video.VideoID,
		video.BandID,
		video.OpponentBandID,
		video.Title,
		video.Description,
		video.ThumbnailURL,
		video.DurationSeconds,
		video.PublishedAt,
		video.ViewCount,
		video.LikeCount,
		video.QualityScore,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return false, db.WrapError(err, "insert published video")
	}

	flag := `
		UPDATE raw_videos
		SET is_promoted = true, promoted_at = COALESCE(promoted_at, now()), updated_at = now()
		WHERE video_id = $1 AND NOT is_promoted
	`
	if _, err := tx.Exec(ctx, flag, video.VideoID); err != nil {
		return false, db.WrapError(err, "flag raw video promoted")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, db.WrapError(err, "commit promotion")
	}

	return tag.RowsAffected() == 1, nil
}

const publishedDuplicatePredicate = `
	FROM published_videos dup
	WHERE EXISTS (
		SELECT 1 FROM published_videos keep
		WHERE keep.band_id = dup.band_id
		  AND lower(keep.title) = lower(dup.title)
		  AND keep.video_id <> dup.video_id
		  AND (keep.created_at < dup.created_at
		       OR (keep.created_at = dup.created_at AND keep.video_id < dup.video_id))
	)
`

func (r *publishedVideoRepository) CountDuplicates(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+publishedDuplicatePredicate).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count published duplicates")
	}
	return count, nil
}

func (r *publishedVideoRepository) DeleteDuplicates(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE `+publishedDuplicatePredicate)
	if err != nil {
		return 0, db.WrapError(err, "delete published duplicates")
	}
	return int(tag.RowsAffected()), nil
}

func (r *publishedVideoRepository) CountLowQuality(ctx context.Context, threshold int) (int, error) {
	query := `SELECT COUNT(*) FROM published_videos WHERE quality_score < $1 AND NOT is_hidden`

	var count int
	if err := r.pool.QueryRow(ctx, query, threshold).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count low quality published videos")
	}
	return count, nil
}

func (r *publishedVideoRepository) HideLowQuality(ctx context.Context, threshold int) (int, error) {
	query := `
		UPDATE published_videos
		SET is_hidden = true, hide_reason = $2, updated_at = now()
		WHERE quality_score < $1 AND NOT is_hidden
	`

	tag, err := r.pool.Exec(ctx, query, threshold, models.HideReasonLowQuality)
	if err != nil {
		return 0, db.WrapError(err, "hide low quality published videos")
	}
	return int(tag.RowsAffected()), nil
}

func (r *publishedVideoRepository) CountStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM published_videos WHERE updated_at < $1 AND NOT is_hidden`

	var count int
	if err := r.pool.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count stale published videos")
	}
	return count, nil
}

func (r *publishedVideoRepository) HideStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE published_videos
		SET is_hidden = true, hide_reason = $2, updated_at = now()
		WHERE updated_at < $1 AND NOT is_hidden
	`

	tag, err := r.pool.Exec(ctx, query, cutoff, models.HideReasonSourceRemoved)
	if err != nil {
		return 0, db.WrapError(err, "hide stale published videos")
	}
	return int(tag.RowsAffected()), nil
}

func scanPublishedVideo(row pgx.Row) (*models.PublishedVideo, error) {
	video := &models.PublishedVideo{}
	err := row.Scan(
		&video.VideoID,
		&video.BandID,
		&video.OpponentBandID,
		&video.Title,
		&video.Description,
		&video.ThumbnailURL,
		&video.DurationSeconds,
		&video.PublishedAt,
		&video.ViewCount,
		&video.LikeCount,
		&video.QualityScore,
		&video.IsHidden,
		&video.HideReason,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}
