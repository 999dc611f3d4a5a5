package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/worker"
)

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Enqueue(ctx context.Context, job *domain.IndexJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobRepo) AcquireNextJob(ctx context.Context) (*domain.IndexJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexJob), args.Error(1)
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}

type mockIndexUsecase struct {
	mock.Mock
}

func (m *mockIndexUsecase) IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	args := m.Called(ctx, chunks)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker")
	}
}

func TestJobWorker_ProcessesJob(t *testing.T) {
	job := domain.NewIndexJob([]domain.Chunk{
		{ChunkID: "c1", Company: "MSFT", Year: 2023, Text: "text"},
	})

	updated := make(chan struct{})
	jobs := new(mockJobRepo)
	jobs.On("AcquireNextJob", mock.Anything).Return(job, nil).Once()
	jobs.On("AcquireNextJob", mock.Anything).Return(nil, nil)
	jobs.On("UpdateStatus", mock.Anything, job.ID, domain.JobStatusDone, (*string)(nil)).
		Run(func(mock.Arguments) { close(updated) }).Return(nil)

	indexUC := new(mockIndexUsecase)
	indexUC.On("IndexChunks", mock.Anything, job.Chunks).Return(1, nil)

	w := worker.NewJobWorker(jobs, indexUC, testLogger())
	w.Start()
	defer w.Stop()

	waitSignal(t, updated)
	indexUC.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestJobWorker_MarksFailedJobs(t *testing.T) {
	job := domain.NewIndexJob([]domain.Chunk{
		{ChunkID: "c1", Company: "MSFT", Year: 2023, Text: "text"},
	})

	updated := make(chan struct{})
	jobs := new(mockJobRepo)
	jobs.On("AcquireNextJob", mock.Anything).Return(job, nil).Once()
	jobs.On("AcquireNextJob", mock.Anything).Return(nil, nil)
	jobs.On("UpdateStatus", mock.Anything, job.ID, domain.JobStatusFailed, mock.MatchedBy(func(msg *string) bool {
		return msg != nil && *msg != ""
	})).Run(func(mock.Arguments) { close(updated) }).Return(nil)

	indexUC := new(mockIndexUsecase)
	indexUC.On("IndexChunks", mock.Anything, mock.Anything).Return(0, errors.New("embedder down"))

	w := worker.NewJobWorker(jobs, indexUC, testLogger())
	w.Start()
	defer w.Stop()

	waitSignal(t, updated)
	jobs.AssertExpectations(t)
}

func TestJobWorker_UnknownJobTypeFails(t *testing.T) {
	job := domain.NewIndexJob(nil)
	job.JobType = "reindex_everything"

	updated := make(chan struct{})
	jobs := new(mockJobRepo)
	jobs.On("AcquireNextJob", mock.Anything).Return(job, nil).Once()
	jobs.On("AcquireNextJob", mock.Anything).Return(nil, nil)
	jobs.On("UpdateStatus", mock.Anything, job.ID, domain.JobStatusFailed, mock.Anything).
		Run(func(mock.Arguments) { close(updated) }).Return(nil)

	indexUC := new(mockIndexUsecase)

	w := worker.NewJobWorker(jobs, indexUC, testLogger())
	w.Start()
	defer w.Stop()

	waitSignal(t, updated)
	indexUC.AssertNotCalled(t, "IndexChunks", mock.Anything, mock.Anything)
	jobs.AssertExpectations(t)
}

func TestJobWorker_StopsPolling(t *testing.T) {
	var polls atomic.Int64
	first := make(chan struct{})
	jobs := new(mockJobRepo)
	jobs.On("AcquireNextJob", mock.Anything).Run(func(mock.Arguments) {
		if polls.Add(1) == 1 {
			close(first)
		}
	}).Return(nil, nil)

	w := worker.NewJobWorker(jobs, new(mockIndexUsecase), testLogger())
	w.Start()

	waitSignal(t, first)
	w.Stop()

	// Give any in-flight poll time to land, then verify the count
	// stays put.
	time.Sleep(100 * time.Millisecond)
	settled := polls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, settled, polls.Load())
}
