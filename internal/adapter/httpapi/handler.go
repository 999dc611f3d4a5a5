// Package httpapi exposes the question-answering pipeline over HTTP.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase"
)

const maxBatchQueries = 20

type Handler struct {
	orchestrator usecase.Orchestrator
	indexUsecase usecase.IndexChunksUsecase
	jobRepo      domain.IndexJobRepository // nil for synchronous backends
}

// NewHandler wires the routes' dependencies. A nil jobRepo makes chunk
// indexing synchronous; otherwise requests are queued for the worker.
func NewHandler(orchestrator usecase.Orchestrator, indexUsecase usecase.IndexChunksUsecase, jobRepo domain.IndexJobRepository) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		indexUsecase: indexUsecase,
		jobRepo:      jobRepo,
	}
}

// Register attaches all routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/qa/answer", h.Answer)
	e.POST("/v1/qa/batch", h.BatchAnswer)
	e.GET("/v1/qa/stats", h.Stats)
	e.POST("/internal/index/chunks", h.IndexChunks)
}

type answerRequest struct {
	Query string `json:"query"`
}

// Answer handles POST /v1/qa/answer. It always returns 200 with a
// well-formed answer body; pipeline failures surface as low-confidence
// answers, not HTTP errors.
func (h *Handler) Answer(ctx echo.Context) error {
	var req answerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	answer := h.orchestrator.Answer(ctx.Request().Context(), req.Query)
	return ctx.JSON(http.StatusOK, answer)
}

type batchRequest struct {
	Queries []string `json:"queries"`
}

type batchResponse struct {
	Answers []*domain.Answer `json:"answers"`
}

// BatchAnswer handles POST /v1/qa/batch.
func (h *Handler) BatchAnswer(ctx echo.Context) error {
	var req batchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Queries) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "queries must not be empty"})
	}
	if len(req.Queries) > maxBatchQueries {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "too many queries in one batch"})
	}

	answers := h.orchestrator.BatchAnswer(ctx.Request().Context(), req.Queries)
	return ctx.JSON(http.StatusOK, batchResponse{Answers: answers})
}

// Stats handles GET /v1/qa/stats.
func (h *Handler) Stats(ctx echo.Context) error {
	stats, err := h.orchestrator.Stats(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, stats)
}

type indexRequest struct {
	Chunks []domain.Chunk `json:"chunks"`
}

// IndexChunks handles POST /internal/index/chunks. With a job queue
// configured the chunks are enqueued and 202 returned; otherwise they
// are indexed inline.
func (h *Handler) IndexChunks(ctx echo.Context) error {
	var req indexRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Chunks) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "chunks must not be empty"})
	}

	if h.jobRepo != nil {
		job := domain.NewIndexJob(req.Chunks)
		if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
			return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{
			"job_id": job.ID.String(),
			"status": job.Status,
		})
	}

	indexed, err := h.indexUsecase.IndexChunks(ctx.Request().Context(), req.Chunks)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]int{"indexed": indexed})
}
