package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"finqa-orchestrator/internal/adapter/gemini"
	"finqa-orchestrator/internal/adapter/repository"
	"finqa-orchestrator/internal/adapter/vectorindex"
	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/infra/config"
	"finqa-orchestrator/internal/infra/httpclient"
	"finqa-orchestrator/internal/usecase"
	"finqa-orchestrator/internal/usecase/retrieval"
	"finqa-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies. JobRepo and
// Worker are nil when the memory backend is selected.
type ApplicationComponents struct {
	Index        domain.VectorIndex
	JobRepo      domain.IndexJobRepository
	Orchestrator usecase.Orchestrator
	IndexUsecase usecase.IndexChunksUsecase
	Worker       *worker.JobWorker
}

// NewApplicationComponents wires everything from config. pool may be
// nil when the memory backend is configured.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// One limiter across both Gemini clients keeps the whole process
	// inside the account quota.
	limiter := rate.NewLimiter(rate.Limit(cfg.LLMRateRPS), cfg.LLMRateRPS)
	llmHTTP := httpclient.NewPooledClient(time.Duration(cfg.LLMTimeoutSec) * time.Second)

	embedder := gemini.NewEmbedder(cfg.GeminiBaseURL, cfg.EmbeddingModel, cfg.GeminiAPIKey, llmHTTP, limiter)
	generator := gemini.NewGenerator(cfg.GeminiBaseURL, cfg.LLMModel, cfg.GeminiAPIKey, llmHTTP, limiter)

	var (
		index   domain.VectorIndex
		jobRepo domain.IndexJobRepository
		txm     domain.TransactionManager
	)
	if cfg.IndexBackend == config.BackendMemory || pool == nil {
		index = vectorindex.NewMemoryIndex()
		txm = domain.NewNoopTransactionManager()
	} else {
		index = repository.NewFilingChunkRepository(pool)
		jobRepo = repository.NewIndexJobRepository(pool)
		txm = repository.NewPostgresTransactionManager(pool)
	}

	indexUsecase := usecase.NewIndexChunksUsecase(index, embedder, txm, log)

	classifier := usecase.NewClassifier(generator, log)
	decomposer := usecase.NewDecomposer(generator, log)
	engine := retrieval.NewEngine(index, embedder, log)
	synthesizer := usecase.NewSynthesizer(generator, usecase.NewLabelParser(), log)

	orchestrator := usecase.NewOrchestrator(
		classifier, decomposer, engine, synthesizer, index,
		usecase.OrchestratorConfig{
			NResults:           cfg.NResults,
			MaxSubQueryWorkers: cfg.MaxSubQueryWorkers,
			RetrieveTimeout:    time.Duration(cfg.RetrieveTimeoutSec) * time.Second,
			CacheSize:          cfg.CacheSize,
			CacheTTL:           time.Duration(cfg.CacheTTLMinutes) * time.Minute,
		},
		log,
	)

	components := &ApplicationComponents{
		Index:        index,
		JobRepo:      jobRepo,
		Orchestrator: orchestrator,
		IndexUsecase: indexUsecase,
	}
	if jobRepo != nil {
		components.Worker = worker.NewJobWorker(jobRepo, indexUsecase, log)
	}
	return components
}
