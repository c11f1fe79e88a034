package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Band is the canonical organizational entity videos are attributed to.
type Band struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Slug         string     `db:"slug" json:"slug"`
	Name         string     `db:"name" json:"name"`
	School       string     `db:"school" json:"school"`
	City         string     `db:"city" json:"city"`
	State        string     `db:"state" json:"state"`
	ChannelID    *string    `db:"channel_id" json:"channel_id,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// NewBandStub creates a minimal band record for a name discovered during
// matching. School and location are placeholders until curated by an admin.
func NewBandStub(name string) *Band {
	now := time.Now()
	return &Band{
		ID:        uuid.New(),
		Slug:      Slugify(name),
		Name:      name,
		School:    name,
		City:      "Unknown",
		State:     "Unknown",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Slugify converts a band name into a URL-safe slug.
// "Southern University Human Jukebox" -> "southern-university-human-jukebox"
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
