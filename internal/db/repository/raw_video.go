package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
)

// RawVideoRepository defines operations for managing ingested raw videos.
type RawVideoRepository interface {
	// GetByVideoID retrieves a raw video by its external ID.
	GetByVideoID(ctx context.Context, videoID string) (*models.RawVideo, error)

	// Create inserts a new raw video.
	Create(ctx context.Context, video *models.RawVideo) error

	// UpdateStats refreshes the mutable engagement counters of an existing
	// record without touching match state.
	UpdateStats(ctx context.Context, videoID string, viewCount, likeCount int64) error

	// UpdateMatch stores the matcher's output for a raw video.
	UpdateMatch(ctx context.Context, videoID string, bandID uuid.UUID, opponentID *uuid.UUID, score int) error

	// ListPromotable returns matched, unpromoted videos at or above the
	// quality floor, oldest first, bounded by limit.
	ListPromotable(ctx context.Context, minQualityScore, limit int) ([]*models.RawVideo, error)

	// CountDuplicates counts raw records sharing a channel and title with an
	// earlier-created record.
	CountDuplicates(ctx context.Context) (int, error)

	// DeleteDuplicates removes all but the earliest-created record among raw
	// records sharing a channel and title. Returns the number removed.
	DeleteDuplicates(ctx context.Context) (int, error)
}

type rawVideoRepository struct {
	pool *pgxpool.Pool
}

// NewRawVideoRepository creates a new RawVideoRepository.
func NewRawVideoRepository(pool *pgxpool.Pool) RawVideoRepository {
	return &rawVideoRepository{pool: pool}
}

const rawVideoColumns = `video_id, title, description, channel_id, channel_title, thumbnail_url,
	duration_seconds, published_at, view_count, like_count, matched_band_id, opponent_band_id,
	quality_score, is_promoted, promoted_at, sync_status, created_at, updated_at`

func (r *rawVideoRepository) GetByVideoID(ctx context.Context, videoID string) (*models.RawVideo, error) {
	query := `SELECT ` + rawVideoColumns + ` FROM raw_videos WHERE video_id = $1`

	video, err := scanRawVideo(r.pool.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get raw video by id")
	}
	return video, nil
}

func (r *rawVideoRepository) Create(ctx context.Context, video *models.RawVideo) error {
	query := `
		INSERT INTO raw_videos (
			video_id, title, description, channel_id, channel_title, thumbnail_url,
			duration_seconds, published_at, view_count, like_count, matched_band_id,
			opponent_band_id, quality_score, is_promoted, sync_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.pool.Exec(ctx, query,
		video.VideoID,
		video.Title,
		video.Description,
		video.ChannelID,
		video.ChannelTitle,
		video.ThumbnailURL,
		video.DurationSeconds,
		video.PublishedAt,
		video.ViewCount,
		video.LikeCount,
		video.MatchedBandID,
		video.OpponentBandID,
		video.QualityScore,
		video.IsPromoted,
		video.SyncStatus,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create raw video")
	}
	return nil
}

func (r *rawVideoRepository) UpdateStats(ctx context.Context, videoID string, viewCount, likeCount int64) error {
	query := `
		UPDATE raw_videos
		SET view_count = $2, like_count = $3, sync_status = $4, updated_at = now()
		WHERE video_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, videoID, viewCount, likeCount, models.SyncStatusSynced); err != nil {
		return db.WrapError(err, "update raw video stats")
	}
	return nil
}

func (r *rawVideoRepository) UpdateMatch(ctx context.Context, videoID string, bandID uuid.UUID, opponentID *uuid.UUID, score int) error {
	query := `
		UPDATE raw_videos
		SET matched_band_id = $2, opponent_band_id = $3, quality_score = $4, updated_at = now()
		WHERE video_id = $1
	`

	if _, err := r.pool.Exec(ctx, query, videoID, bandID, opponentID, score); err != nil {
		return db.WrapError(err, "update raw video match")
	}
	return nil
}

func (r *rawVideoRepository) ListPromotable(ctx context.Context, minQualityScore, limit int) ([]*models.RawVideo, error) {
	query := `
		SELECT ` + rawVideoColumns + `
		FROM raw_videos
		WHERE matched_band_id IS NOT NULL
		  AND NOT is_promoted
		  AND quality_score >= $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, minQualityScore, limit)
	if err != nil {
		return nil, db.WrapError(err, "list promotable raw videos")
	}
	defer rows.Close()

	var videos []*models.RawVideo
	for rows.Next() {
		video, err := scanRawVideo(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan raw video")
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate raw videos")
	}

	return videos, nil
}

// Near-duplicate predicate: same channel and case-insensitive title on a
// record created strictly after another (ties broken by video_id).
const rawDuplicatePredicate = `
	FROM raw_videos dup
	WHERE EXISTS (
		SELECT 1 FROM raw_videos keep
		WHERE keep.channel_id = dup.channel_id
		  AND lower(keep.title) = lower(dup.title)
		  AND keep.video_id <> dup.video_id
		  AND (keep.created_at < dup.created_at
		       OR (keep.created_at = dup.created_at AND keep.video_id < dup.video_id))
	)
`

func (r *rawVideoRepository) CountDuplicates(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+rawDuplicatePredicate).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count raw video duplicates")
	}
	return count, nil
}

func (r *rawVideoRepository) DeleteDuplicates(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE `+rawDuplicatePredicate)
	if err != nil {
		return 0, db.WrapError(err, "delete raw video duplicates")
	}
	return int(tag.RowsAffected()), nil
}

func scanRawVideo(row pgx.Row) (*models.RawVideo, error) {
	video := &models.RawVideo{}
	err := row.Scan(
		&video.VideoID,
		&video.Title,
		&video.Description,
		&video.ChannelID,
		&video.ChannelTitle,
		&video.ThumbnailURL,
		&video.DurationSeconds,
		&video.PublishedAt,
		&video.ViewCount,
		&video.LikeCount,
		&video.MatchedBandID,
		&video.OpponentBandID,
		&video.QualityScore,
		&video.IsPromoted,
		&video.PromotedAt,
		&video.SyncStatus,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return video, nil
}
