// Package matcher maps unstructured video metadata to canonical bands using
// an ordered pattern table, and scores video quality.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db/models"
	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Match is the matcher's verdict for one video.
type Match struct {
	BandID         uuid.UUID
	BandName       string
	OpponentBandID *uuid.UUID
	// PatternIndex is the position of the winning entry in the pattern
	// table; lower means more specific.
	PatternIndex int
}

// Matcher resolves raw titles and descriptions to band identifiers. Matching
// over a fixed table is deterministic: identical input always yields the
// same band assignment.
type Matcher struct {
	entries []compiledEntry
	bands   repository.BandRepository
}

// New compiles the pattern table. Entries are evaluated in order; the first
// match wins.
func New(entries []PatternEntry, bands repository.BandRepository) (*Matcher, error) {
	compiled, err := compilePatterns(entries)
	if err != nil {
		return nil, fmt.Errorf("compile pattern table: %w", err)
	}
	return &Matcher{entries: compiled, bands: bands}, nil
}

// Match resolves a title/description pair to zero or one band. A nil result
// with a nil error means no pattern matched, which is a normal outcome; the
// video simply stays unmatched. When a pattern names a band not yet in the
// catalog, a minimal stub is upserted by slug and its ID returned.
func (m *Matcher) Match(ctx context.Context, title, description string) (*Match, error) {
	haystack := strings.ToLower(title)

	primary := -1
	for i, entry := range m.entries {
		if entry.re.MatchString(haystack) {
			primary = i
			break
		}
	}

	// Fall back to the description only when the title says nothing.
	if primary < 0 && description != "" {
		desc := strings.ToLower(description)
		for i, entry := range m.entries {
			if entry.re.MatchString(desc) {
				primary = i
				break
			}
		}
	}

	if primary < 0 {
		return nil, nil
	}

	bandID, err := m.resolveBand(ctx, m.entries[primary].band)
	if err != nil {
		return nil, err
	}

	result := &Match{
		BandID:       bandID,
		BandName:     m.entries[primary].band,
		PatternIndex: primary,
	}

	// An opponent is the first later entry naming a different band that also
	// matches the title. Same linear scan, so still deterministic.
	for i := primary + 1; i < len(m.entries); i++ {
		entry := m.entries[i]
		if entry.band == m.entries[primary].band {
			continue
		}
		if entry.re.MatchString(haystack) {
			opponentID, err := m.resolveBand(ctx, entry.band)
			if err != nil {
				return nil, err
			}
			result.OpponentBandID = &opponentID
			break
		}
	}

	return result, nil
}

func (m *Matcher) resolveBand(ctx context.Context, name string) (uuid.UUID, error) {
	stub := models.NewBandStub(name)

	id, err := m.bands.UpsertStub(ctx, stub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve band %q: %w", name, err)
	}

	if id == stub.ID {
		logger.Log.Info("created band stub from matcher",
			zap.String("band", name),
			zap.String("slug", stub.Slug),
		)
	}

	return id, nil
}

// PatternCount returns the size of the compiled table.
func (m *Matcher) PatternCount() int {
	return len(m.entries)
}
