package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldshow/bandcatalog/internal/db"
	"github.com/fieldshow/bandcatalog/internal/db/models"
)

// BandRepository defines operations for managing bands.
type BandRepository interface {
	// GetByID retrieves a band by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Band, error)

	// GetBySlug retrieves a band by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*models.Band, error)

	// UpsertStub creates a band stub if no band with its slug exists and
	// returns the ID of the stored row either way.
	UpsertStub(ctx context.Context, band *models.Band) (uuid.UUID, error)

	// ListActive retrieves all active bands.
	ListActive(ctx context.Context) ([]*models.Band, error)

	// UpdateLastSyncedAt advances the band's sync cursor.
	UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}

type bandRepository struct {
	pool *pgxpool.Pool
}

// NewBandRepository creates a new BandRepository.
func NewBandRepository(pool *pgxpool.Pool) BandRepository {
	return &bandRepository{pool: pool}
}

const bandColumns = `id, slug, name, school, city, state, channel_id, is_active, last_synced_at, created_at, updated_at`

func (r *bandRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE id = $1`

	band, err := scanBand(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get band by id")
	}
	return band, nil
}

func (r *bandRepository) GetBySlug(ctx context.Context, slug string) (*models.Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE slug = $1`

	band, err := scanBand(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, db.WrapError(err, "get band by slug")
	}
	return band, nil
}

func (r *bandRepository) UpsertStub(ctx context.Context, band *models.Band) (uuid.UUID, error) {
	// The no-op update makes RETURNING yield the existing row's id on conflict.
	query := `
		INSERT INTO bands (id, slug, name, school, city, state, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		band.ID,
		band.Slug,
		band.Name,
		band.School,
		band.City,
		band.State,
		band.IsActive,
		band.CreatedAt,
		band.UpdatedAt,
	).Scan(&id)

	if err != nil {
		return uuid.Nil, db.WrapError(err, "upsert band stub")
	}

	return id, nil
}

func (r *bandRepository) ListActive(ctx context.Context) ([]*models.Band, error) {
	query := `SELECT ` + bandColumns + ` FROM bands WHERE is_active ORDER BY slug`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.WrapError(err, "list active bands")
	}
	defer rows.Close()

	var bands []*models.Band
	for rows.Next() {
		band, err := scanBand(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan band")
		}
		bands = append(bands, band)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate bands")
	}

	return bands, nil
}

func (r *bandRepository) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	query := `UPDATE bands SET last_synced_at = $2, updated_at = now() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, syncedAt); err != nil {
		return db.WrapError(err, "update band last synced at")
	}
	return nil
}

func scanBand(row pgx.Row) (*models.Band, error) {
	band := &models.Band{}
	err := row.Scan(
		&band.ID,
		&band.Slug,
		&band.Name,
		&band.School,
		&band.City,
		&band.State,
		&band.ChannelID,
		&band.IsActive,
		&band.LastSyncedAt,
		&band.CreatedAt,
		&band.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return band, nil
}
