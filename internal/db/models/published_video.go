package models

import (
	"time"

	"github.com/google/uuid"
)

// Hide reasons recorded by the maintenance worker.
const (
	HideReasonLowQuality    = "low_quality"
	HideReasonSourceRemoved = "source_removed"
)

// PublishedVideo is a public catalog entry created by promotion. Exactly one
// exists per promoted RawVideo, enforced by the primary key on video_id.
type PublishedVideo struct {
	VideoID         string     `db:"video_id" json:"video_id"`
	BandID          uuid.UUID  `db:"band_id" json:"band_id"`
	OpponentBandID  *uuid.UUID `db:"opponent_band_id" json:"opponent_band_id,omitempty"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ThumbnailURL    string     `db:"thumbnail_url" json:"thumbnail_url"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	PublishedAt     time.Time  `db:"published_at" json:"published_at"`
	ViewCount       int64      `db:"view_count" json:"view_count"`
	LikeCount       int64      `db:"like_count" json:"like_count"`
	QualityScore    int        `db:"quality_score" json:"quality_score"`
	IsHidden        bool       `db:"is_hidden" json:"is_hidden"`
	HideReason      *string    `db:"hide_reason" json:"hide_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FromRaw builds the public catalog entry for a matched raw record. The
// quality score is copied verbatim at promotion time.
func FromRaw(raw *RawVideo) *PublishedVideo {
	now := time.Now()
	return &PublishedVideo{
		VideoID:         raw.VideoID,
		BandID:          *raw.MatchedBandID,
		OpponentBandID:  raw.OpponentBandID,
		Title:           raw.Title,
		Description:     raw.Description,
		ThumbnailURL:    raw.ThumbnailURL,
		DurationSeconds: raw.DurationSeconds,
		PublishedAt:     raw.PublishedAt,
		ViewCount:       raw.ViewCount,
		LikeCount:       raw.LikeCount,
		QualityScore:    raw.QualityScore,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
