package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/db/repository"
	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// Cleanup scopes accepted by the maintenance worker.
const (
	CleanupDuplicates = "duplicates"
	CleanupIrrelevant = "irrelevant"
	CleanupDeleted    = "deleted"
	CleanupAll        = "all"
)

// CleanupResult reports what one maintenance run did, or would have done in
// dry-run mode.
type CleanupResult struct {
	Scope               string    `json:"scope"`
	DryRun              bool      `json:"dry_run"`
	RawDuplicates       int       `json:"raw_duplicates"`
	PublishedDuplicates int       `json:"published_duplicates"`
	LowQualityHidden    int       `json:"low_quality_hidden"`
	StaleHidden         int       `json:"stale_hidden"`
	Errors              []string  `json:"errors,omitempty"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// Affected is the total number of records the run touched or counted.
func (r *CleanupResult) Affected() int {
	return r.RawDuplicates + r.PublishedDuplicates + r.LowQualityHidden + r.StaleHidden
}

// Maintainer keeps the catalog clean: it removes duplicate records, hides
// low-quality entries and hides entries whose source has gone stale. Dry-run
// mode counts with the exact same predicates the mutating queries use.
type Maintainer struct {
	raws                repository.RawVideoRepository
	published           repository.PublishedVideoRepository
	events              EventPublisher
	lowQualityThreshold int
	staleAfter          time.Duration
}

// NewMaintainer wires the maintenance service.
func NewMaintainer(
	raws repository.RawVideoRepository,
	published repository.PublishedVideoRepository,
	events EventPublisher,
	lowQualityThreshold int,
	staleAfter time.Duration,
) *Maintainer {
	if events == nil {
		events = NopPublisher{}
	}
	return &Maintainer{
		raws:                raws,
		published:           published,
		events:              events,
		lowQualityThreshold: lowQualityThreshold,
		staleAfter:          staleAfter,
	}
}

// Run executes one maintenance pass over the requested scope. Under scope
// "all", a failing sub-task is recorded and the rest still run.
func (m *Maintainer) Run(ctx context.Context, scope string, dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{
		Scope:     scope,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}

	var err error
	switch scope {
	case CleanupDuplicates:
		err = m.sweepDuplicates(ctx, result)
	case CleanupIrrelevant:
		err = m.sweepLowQuality(ctx, result)
	case CleanupDeleted:
		err = m.sweepStale(ctx, result)
	case CleanupAll:
		for _, sweep := range []func(context.Context, *CleanupResult) error{
			m.sweepDuplicates,
			m.sweepLowQuality,
			m.sweepStale,
		} {
			if sweepErr := sweep(ctx, result); sweepErr != nil {
				result.Errors = append(result.Errors, sweepErr.Error())
			}
		}
	default:
		return nil, fmt.Errorf("invalid cleanup scope: %q", scope)
	}

	result.FinishedAt = time.Now()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	logger.Log.Info("cleanup run finished",
		zap.String("scope", scope),
		zap.Bool("dry_run", dryRun),
		zap.Int("affected", result.Affected()),
		zap.Int("errors", len(result.Errors)),
	)

	if !dryRun && result.Affected() > 0 {
		event := NewCatalogEvent(EventCleanupCompleted)
		event.Scope = scope
		event.Affected = result.Affected()
		if pubErr := m.events.Publish(ctx, event); pubErr != nil {
			logger.Log.Warn("failed to publish cleanup event", zap.Error(pubErr))
		}
	}

	return result, nil
}

func (m *Maintainer) sweepDuplicates(ctx context.Context, result *CleanupResult) error {
	if result.DryRun {
		rawCount, err := m.raws.CountDuplicates(ctx)
		if err != nil {
			return fmt.Errorf("count raw duplicates: %w", err)
		}
		pubCount, err := m.published.CountDuplicates(ctx)
		if err != nil {
			return fmt.Errorf("count published duplicates: %w", err)
		}
		result.RawDuplicates = rawCount
		result.PublishedDuplicates = pubCount
		return nil
	}

	rawCount, err := m.raws.DeleteDuplicates(ctx)
	if err != nil {
		return fmt.Errorf("delete raw duplicates: %w", err)
	}
	result.RawDuplicates = rawCount

	pubCount, err := m.published.DeleteDuplicates(ctx)
	if err != nil {
		return fmt.Errorf("delete published duplicates: %w", err)
	}
	result.PublishedDuplicates = pubCount

	metrics.CleanupAffected.WithLabelValues(CleanupDuplicates).Add(float64(rawCount + pubCount))
	return nil
}

func (m *Maintainer) sweepLowQuality(ctx context.Context, result *CleanupResult) error {
	if result.DryRun {
		count, err := m.published.CountLowQuality(ctx, m.lowQualityThreshold)
		if err != nil {
			return fmt.Errorf("count low quality videos: %w", err)
		}
		result.LowQualityHidden = count
		return nil
	}

	count, err := m.published.HideLowQuality(ctx, m.lowQualityThreshold)
	if err != nil {
		return fmt.Errorf("hide low quality videos: %w", err)
	}
	result.LowQualityHidden = count

	metrics.CleanupAffected.WithLabelValues(CleanupIrrelevant).Add(float64(count))
	return nil
}

func (m *Maintainer) sweepStale(ctx context.Context, result *CleanupResult) error {
	cutoff := time.Now().Add(-m.staleAfter)

	if result.DryRun {
		count, err := m.published.CountStale(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("count stale videos: %w", err)
		}
		result.StaleHidden = count
		return nil
	}

	count, err := m.published.HideStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("hide stale videos: %w", err)
	}
	result.StaleHidden = count

	metrics.CleanupAffected.WithLabelValues(CleanupDeleted).Add(float64(count))
	return nil
}
