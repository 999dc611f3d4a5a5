package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finqa-orchestrator/internal/adapter/httpapi"
	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase"
)

type mockOrchestrator struct {
	mock.Mock
}

func (m *mockOrchestrator) Answer(ctx context.Context, query string) *domain.Answer {
	args := m.Called(ctx, query)
	return args.Get(0).(*domain.Answer)
}

func (m *mockOrchestrator) BatchAnswer(ctx context.Context, queries []string) []*domain.Answer {
	args := m.Called(ctx, queries)
	return args.Get(0).([]*domain.Answer)
}

func (m *mockOrchestrator) Stats(ctx context.Context) (*usecase.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SystemStats), args.Error(1)
}

type mockIndexUsecase struct {
	mock.Mock
}

func (m *mockIndexUsecase) IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	args := m.Called(ctx, chunks)
	return args.Int(0), args.Error(1)
}

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

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnswerEndpoint(t *testing.T) {
	orch := new(mockOrchestrator)
	orch.On("Answer", mock.Anything, "What was Microsoft's revenue in 2023?").Return(&domain.Answer{
		Query:      "What was Microsoft's revenue in 2023?",
		Answer:     "$211.9 billion",
		Confidence: domain.ConfidenceHigh,
	})

	e := echo.New()
	httpapi.NewHandler(orch, new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/v1/qa/answer", `{"query":"What was Microsoft's revenue in 2023?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var answer domain.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "$211.9 billion", answer.Answer)
	assert.Equal(t, domain.ConfidenceHigh, answer.Confidence)
}

func TestAnswerEndpoint_BadBody(t *testing.T) {
	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/v1/qa/answer", `{"query": 5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchEndpoint(t *testing.T) {
	orch := new(mockOrchestrator)
	orch.On("BatchAnswer", mock.Anything, []string{"a revenue", "b revenue"}).Return([]*domain.Answer{
		{Query: "a revenue"}, {Query: "b revenue"},
	})

	e := echo.New()
	httpapi.NewHandler(orch, new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/v1/qa/batch", `{"queries":["a revenue","b revenue"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Answers []*domain.Answer `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Answers, 2)
}

func TestBatchEndpoint_Empty(t *testing.T) {
	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/v1/qa/batch", `{"queries":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchEndpoint_TooMany(t *testing.T) {
	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), new(mockIndexUsecase), nil).Register(e)

	queries := make([]string, 21)
	for i := range queries {
		queries[i] = "q"
	}
	body, _ := json.Marshal(map[string][]string{"queries": queries})

	rec := doRequest(e, http.MethodPost, "/v1/qa/batch", string(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	orch := new(mockOrchestrator)
	orch.On("Stats", mock.Anything).Return(&usecase.SystemStats{
		VectorStore: &domain.IndexStats{TotalChunks: 7},
	}, nil)

	e := echo.New()
	httpapi.NewHandler(orch, new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodGet, "/v1/qa/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_chunks":7`)
}

func TestIndexEndpoint_EnqueuesWhenQueueConfigured(t *testing.T) {
	jobs := new(mockJobRepo)
	jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *domain.IndexJob) bool {
		return job.JobType == domain.JobTypeIndexChunks && len(job.Chunks) == 1
	})).Return(nil)

	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), new(mockIndexUsecase), jobs).Register(e)

	rec := doRequest(e, http.MethodPost, "/internal/index/chunks",
		`{"chunks":[{"chunk_id":"c1","company":"MSFT","year":2023,"section":"MD&A","text":"some text"}]}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "job_id")
	jobs.AssertExpectations(t)
}

func TestIndexEndpoint_SynchronousWithoutQueue(t *testing.T) {
	indexUC := new(mockIndexUsecase)
	indexUC.On("IndexChunks", mock.Anything, mock.Anything).Return(1, nil)

	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), indexUC, nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/internal/index/chunks",
		`{"chunks":[{"chunk_id":"c1","company":"MSFT","year":2023,"text":"some text"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"indexed":1`)
	indexUC.AssertExpectations(t)
}

func TestIndexEndpoint_EmptyChunks(t *testing.T) {
	e := echo.New()
	httpapi.NewHandler(new(mockOrchestrator), new(mockIndexUsecase), nil).Register(e)

	rec := doRequest(e, http.MethodPost, "/internal/index/chunks", `{"chunks":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
