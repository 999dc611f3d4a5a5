package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finqa-orchestrator/internal/domain"
)

// IndexJobRepository is the postgres-backed indexing queue. Jobs are
// claimed with FOR UPDATE SKIP LOCKED so multiple workers never pick
// the same one.
type IndexJobRepository struct {
	pool *pgxpool.Pool
}

// NewIndexJobRepository creates the queue over the index_jobs table.
func NewIndexJobRepository(pool *pgxpool.Pool) domain.IndexJobRepository {
	return &IndexJobRepository{pool: pool}
}

var _ domain.IndexJobRepository = (*IndexJobRepository)(nil)

func (r *IndexJobRepository) Enqueue(ctx context.Context, job *domain.IndexJob) error {
	payload, err := json.Marshal(job.Chunks)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	query := `
		INSERT INTO index_jobs (id, job_type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.JobType,
		payload,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue index job: %w", err)
	}
	return nil
}

// AcquireNextJob atomically claims the oldest pending job, flipping it
// to processing in the same statement.
func (r *IndexJobRepository) AcquireNextJob(ctx context.Context) (*domain.IndexJob, error) {
	query := `
		WITH next_job AS (
			SELECT id
			FROM index_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE index_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE index_jobs.id = next_job.id
		RETURNING index_jobs.id, index_jobs.job_type, index_jobs.payload,
			index_jobs.status, index_jobs.error_message,
			index_jobs.created_at, index_jobs.updated_at
	`

	var (
		job     domain.IndexJob
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, time.Now()).Scan(
		&job.ID,
		&job.JobType,
		&payload,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("acquire next index job: %w", err)
	}

	if err := json.Unmarshal(payload, &job.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshal job payload: %w", err)
	}
	return &job, nil
}

func (r *IndexJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE index_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := r.pool.Exec(ctx, query, status, errorMessage, time.Now(), id); err != nil {
		return fmt.Errorf("update index job status: %w", err)
	}
	return nil
}
