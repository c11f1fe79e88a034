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

// SyncJobRepository defines operations for the ingestion audit trail.
type SyncJobRepository interface {
	// Create inserts a new sync job record.
	Create(ctx context.Context, job *models.SyncJob) error

	// GetByID retrieves a sync job by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error)

	// SetTaskID links the job record to its queue task.
	SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error

	// AppendError appends one error message to the job's error log.
	AppendError(ctx context.Context, id uuid.UUID, message string) error

	// MarkCompleted finalizes the job with its counts.
	MarkCompleted(ctx context.Context, id uuid.UUID, found, added, updated int) error

	// MarkFailed finalizes the job as failed with its counts so far and a
	// terminal reason appended to the error log.
	MarkFailed(ctx context.Context, id uuid.UUID, found, added, updated int, reason string) error

	// List retrieves job records newest first.
	List(ctx context.Context, limit, offset int) ([]*models.SyncJob, error)

	// ListStuck retrieves in-progress jobs started before the cutoff.
	ListStuck(ctx context.Context, cutoff time.Time) ([]*models.SyncJob, error)
}

type syncJobRepository struct {
	pool *pgxpool.Pool
}

// NewSyncJobRepository creates a new SyncJobRepository.
func NewSyncJobRepository(pool *pgxpool.Pool) SyncJobRepository {
	return &syncJobRepository{pool: pool}
}

const syncJobColumns = `id, task_id, scope, mode, force, status, videos_found, videos_added,
	videos_updated, errors, started_at, completed_at, created_at, updated_at`

func (r *syncJobRepository) Create(ctx context.Context, job *models.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (
			id, task_id, scope, mode, force, status, videos_found, videos_added,
			videos_updated, errors, started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.TaskID,
		job.Scope,
		job.Mode,
		job.Force,
		job.Status,
		job.VideosFound,
		job.VideosAdded,
		job.VideosUpdated,
		job.Errors,
		job.StartedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return db.WrapError(err, "create sync job")
	}
	return nil
}

func (r *syncJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = $1`

	job, err := scanSyncJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.WrapError(err, "get sync job by id")
	}
	return job, nil
}

func (r *syncJobRepository) SetTaskID(ctx context.Context, id uuid.UUID, taskID string) error {
	query := `UPDATE sync_jobs SET task_id = $2, updated_at = now() WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, taskID); err != nil {
		return db.WrapError(err, "set sync job task id")
	}
	return nil
}

func (r *syncJobRepository) AppendError(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE sync_jobs
		SET errors = errors || to_jsonb($2::text), updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, message); err != nil {
		return db.WrapError(err, "append sync job error")
	}
	return nil
}

func (r *syncJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, found, added, updated int) error {
	query := `
		UPDATE sync_jobs
		SET status = $2, videos_found = $3, videos_added = $4, videos_updated = $5,
		    completed_at = now(), updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, models.JobStatusCompleted, found, added, updated); err != nil {
		return db.WrapError(err, "mark sync job completed")
	}
	return nil
}

func (r *syncJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, found, added, updated int, reason string) error {
	query := `
		UPDATE sync_jobs
		SET status = $2, videos_found = $3, videos_added = $4, videos_updated = $5,
		    errors = errors || to_jsonb($6::text), completed_at = now(), updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, models.JobStatusFailed, found, added, updated, reason); err != nil {
		return db.WrapError(err, "mark sync job failed")
	}
	return nil
}

func (r *syncJobRepository) List(ctx context.Context, limit, offset int) ([]*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs ORDER BY started_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, db.WrapError(err, "list sync jobs")
	}
	defer rows.Close()

	return scanSyncJobs(rows)
}

func (r *syncJobRepository) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.SyncJob, error) {
	query := `
		SELECT ` + syncJobColumns + `
		FROM sync_jobs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at
	`

	rows, err := r.pool.Query(ctx, query, models.JobStatusInProgress, cutoff)
	if err != nil {
		return nil, db.WrapError(err, "list stuck sync jobs")
	}
	defer rows.Close()

	return scanSyncJobs(rows)
}

func scanSyncJobs(rows pgx.Rows) ([]*models.SyncJob, error) {
	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, db.WrapError(err, "scan sync job")
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate sync jobs")
	}

	return jobs, nil
}

func scanSyncJob(row pgx.Row) (*models.SyncJob, error) {
	job := &models.SyncJob{}
	err := row.Scan(
		&job.ID,
		&job.TaskID,
		&job.Scope,
		&job.Mode,
		&job.Force,
		&job.Status,
		&job.VideosFound,
		&job.VideosAdded,
		&job.VideosUpdated,
		&job.Errors,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
