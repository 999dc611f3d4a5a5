package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Index job lifecycle states.
const (
	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// JobTypeIndexChunks is the only job type the worker currently runs.
const JobTypeIndexChunks = "index_chunks"

// IndexJob is one queued indexing request. Chunks is the payload,
// persisted as JSON.
type IndexJob struct {
	ID           uuid.UUID
	JobType      string
	Chunks       []Chunk
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewIndexJob builds a pending job for the given chunks.
func NewIndexJob(chunks []Chunk) *IndexJob {
	now := time.Now()
	return &IndexJob{
		ID:        uuid.New(),
		JobType:   JobTypeIndexChunks,
		Chunks:    chunks,
		Status:    JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IndexJobRepository is the persistent queue behind asynchronous
// indexing. AcquireNextJob returns nil, nil when the queue is empty.
type IndexJobRepository interface {
	Enqueue(ctx context.Context, job *IndexJob) error
	AcquireNextJob(ctx context.Context) (*IndexJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}
