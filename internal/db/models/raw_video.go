package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync status values for a RawVideo.
const (
	SyncStatusPending = "PENDING"
	SyncStatusSynced  = "SYNCED"
	SyncStatusFailed  = "FAILED"
)

// RawVideo is an ingested-but-not-yet-public video metadata record, keyed by
// the external platform's video ID.
type RawVideo struct {
	VideoID         string     `db:"video_id" json:"video_id"`
	Title           string     `db:"title" json:"title"`
	Description     string     `db:"description" json:"description"`
	ChannelID       string     `db:"channel_id" json:"channel_id"`
	ChannelTitle    string     `db:"channel_title" json:"channel_title"`
	ThumbnailURL    string     `db:"thumbnail_url" json:"thumbnail_url"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	PublishedAt     time.Time  `db:"published_at" json:"published_at"`
	ViewCount       int64      `db:"view_count" json:"view_count"`
	LikeCount       int64      `db:"like_count" json:"like_count"`
	MatchedBandID   *uuid.UUID `db:"matched_band_id" json:"matched_band_id,omitempty"`
	OpponentBandID  *uuid.UUID `db:"opponent_band_id" json:"opponent_band_id,omitempty"`
	QualityScore    int        `db:"quality_score" json:"quality_score"`
	IsPromoted      bool       `db:"is_promoted" json:"is_promoted"`
	PromotedAt      *time.Time `db:"promoted_at" json:"promoted_at,omitempty"`
	SyncStatus      string     `db:"sync_status" json:"sync_status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Promotable reports whether this record satisfies the promotion
// precondition: matched to a band and not already promoted.
func (v *RawVideo) Promotable() bool {
	return v.MatchedBandID != nil && !v.IsPromoted
}

// UpdateStats refreshes the mutable engagement counters without touching
// match state.
func (v *RawVideo) UpdateStats(viewCount, likeCount int64) {
	v.ViewCount = viewCount
	v.LikeCount = likeCount
	v.UpdatedAt = time.Now()
}
