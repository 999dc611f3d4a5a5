package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	jobTimeout          = 5 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the index job queue. One worker per process is
// enough; SKIP LOCKED in the repository makes extra workers safe.
type JobWorker struct {
	jobRepo      domain.IndexJobRepository
	indexUsecase usecase.IndexChunksUsecase
	logger       *slog.Logger
	stopChan     chan struct{}
	backoff      time.Duration
}

func NewJobWorker(
	jobRepo domain.IndexJobRepository,
	indexUsecase usecase.IndexChunksUsecase,
	logger *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:      jobRepo,
		indexUsecase: indexUsecase,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("starting index job worker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("stopping index job worker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNextJob(ctx)
	if err != nil {
		w.logger.Error("failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return
	}

	w.logger.Info("processing index job", "job_id", job.ID, "type", job.JobType, "chunks", len(job.Chunks))

	var processErr error
	switch job.JobType {
	case domain.JobTypeIndexChunks:
		_, processErr = w.indexUsecase.IndexChunks(ctx, job.Chunks)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := domain.JobStatusDone
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("worker backing off", "job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("index job completed", "job_id", job.ID)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("failed to update job status", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
