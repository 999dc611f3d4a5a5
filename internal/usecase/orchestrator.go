package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase/retrieval"
)

const (
	minQueryLen = 5
	maxQueryLen = 500
)

// SystemStats is the operational snapshot returned by Stats.
type SystemStats struct {
	VectorStore         *domain.IndexStats `json:"vector_store"`
	Components          map[string]string  `json:"components"`
	SupportedQueryTypes []domain.QueryType `json:"supported_query_types"`
}

// Orchestrator is the question-answering entrypoint. Answer and
// BatchAnswer never fail: every internal error degrades into a
// low-confidence Answer.
type Orchestrator interface {
	Answer(ctx context.Context, query string) *domain.Answer
	BatchAnswer(ctx context.Context, queries []string) []*domain.Answer
	Stats(ctx context.Context) (*SystemStats, error)
}

// OrchestratorConfig sizes the pipeline's concurrency, timeouts, and
// answer cache.
type OrchestratorConfig struct {
	NResults           int
	MaxSubQueryWorkers int
	RetrieveTimeout    time.Duration
	CacheSize          int
	CacheTTL           time.Duration
}

type orchestrator struct {
	classifier  *Classifier
	decomposer  *Decomposer
	engine      *retrieval.Engine
	synthesizer *Synthesizer
	index       domain.VectorIndex
	cache       *expirable.LRU[string, *domain.Answer]
	cfg         OrchestratorConfig
	logger      *slog.Logger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	classifier *Classifier,
	decomposer *Decomposer,
	engine *retrieval.Engine,
	synthesizer *Synthesizer,
	index domain.VectorIndex,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) Orchestrator {
	if cfg.NResults <= 0 {
		cfg.NResults = retrieval.DefaultLimit
	}
	if cfg.MaxSubQueryWorkers <= 0 {
		cfg.MaxSubQueryWorkers = 4
	}
	if cfg.RetrieveTimeout <= 0 {
		cfg.RetrieveTimeout = 15 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &orchestrator{
		classifier:  classifier,
		decomposer:  decomposer,
		engine:      engine,
		synthesizer: synthesizer,
		index:       index,
		cache:       expirable.NewLRU[string, *domain.Answer](cfg.CacheSize, nil, cfg.CacheTTL),
		cfg:         cfg,
		logger:      logger,
	}
}

var _ Orchestrator = (*orchestrator)(nil)

// Answer runs the full pipeline for one question.
func (o *orchestrator) Answer(ctx context.Context, query string) (answer *domain.Answer) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("answer_pipeline_panicked",
				slog.Any("panic", r),
				slog.String("query", query))
			answer = degradedAnswer(query,
				"An internal error occurred while processing the question. Please try again.",
				fmt.Sprintf("Pipeline panic: %v", r))
		}
	}()

	normalized := domain.NormalizeCompanies(strings.TrimSpace(query))

	if reason, ok := validateQuery(normalized); !ok {
		o.logger.Info("query_rejected", slog.String("reason", reason))
		return rejectionAnswer(query, reason)
	}

	if cached, ok := o.cache.Get(normalized); ok {
		o.logger.Info("answer_cache_hit", slog.String("query", normalized))
		return cached
	}

	queryType, cls := o.classifier.Classify(ctx, normalized)
	subQueries := o.decomposer.Decompose(ctx, normalized, queryType, cls)
	evidence := o.retrieveAll(ctx, subQueries, queryType, cls)
	answer = o.synthesizer.Synthesize(ctx, normalized, subQueries, evidence, queryType)

	o.cache.Add(normalized, answer)

	o.logger.Info("answer_completed",
		slog.String("query_type", string(queryType)),
		slog.Int("sub_queries", len(subQueries)),
		slog.String("confidence", string(answer.Confidence)),
		slog.Duration("elapsed", time.Since(start)))

	return answer
}

// retrieveAll fans sub-queries out over a bounded worker group. A
// failed or timed-out sub-query contributes empty evidence; it never
// aborts the others.
func (o *orchestrator) retrieveAll(ctx context.Context, subQueries []string, queryType domain.QueryType, cls *domain.Classification) map[string][]domain.EvidenceItem {
	strategy, opts := retrieval.StrategyFor(queryType, cls)
	opts.Limit = o.cfg.NResults

	results := make([][]domain.EvidenceItem, len(subQueries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxSubQueryWorkers)
	for i, subQuery := range subQueries {
		i, subQuery := i, subQuery
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, o.cfg.RetrieveTimeout)
			defer cancel()

			items, err := o.engine.Retrieve(callCtx, subQuery, strategy, opts)
			if err != nil {
				o.logger.Warn("sub_query_retrieval_failed",
					slog.String("sub_query", subQuery),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	evidence := make(map[string][]domain.EvidenceItem, len(subQueries))
	for i, subQuery := range subQueries {
		if _, ok := evidence[subQuery]; ok {
			continue
		}
		evidence[subQuery] = results[i]
	}
	return evidence
}

// BatchAnswer answers queries one at a time, preserving order. Answer
// itself fans out per sub-query, so batches stay sequential to bound
// total load.
func (o *orchestrator) BatchAnswer(ctx context.Context, queries []string) []*domain.Answer {
	answers := make([]*domain.Answer, len(queries))
	for i, query := range queries {
		answers[i] = o.Answer(ctx, query)
	}
	return answers
}

// Stats reports index contents plus pipeline component versions.
func (o *orchestrator) Stats(ctx context.Context) (*SystemStats, error) {
	indexStats, err := o.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return &SystemStats{
		VectorStore: indexStats,
		Components: map[string]string{
			"classifier":  "pattern+model",
			"decomposer":  "rule+model",
			"retrieval":   "multi-strategy",
			"synthesizer": "template+model",
		},
		SupportedQueryTypes: domain.QueryTypes(),
	}, nil
}

// validateQuery gates obviously unanswerable input before any model
// call is spent on it.
func validateQuery(query string) (string, bool) {
	runeCount := utf8.RuneCountInString(query)
	if runeCount < minQueryLen {
		return "The question is too short. Please provide a more specific financial question.", false
	}
	if runeCount > maxQueryLen {
		return "The question is too long. Please keep questions under 500 characters.", false
	}
	queryLower := strings.ToLower(query)
	for _, keyword := range domain.FinancialKeywords {
		if strings.Contains(queryLower, keyword) {
			return "", true
		}
	}
	return "The question does not appear to be about financial data. This system answers questions about company annual filings.", false
}

func rejectionAnswer(query, reason string) *domain.Answer {
	return degradedAnswer(query, reason, "Query validation failed")
}

func degradedAnswer(query, text, reasoning string) *domain.Answer {
	return &domain.Answer{
		Query:      query,
		Answer:     text,
		Reasoning:  reasoning,
		SubQueries: []string{},
		Sources:    []domain.SourceCitation{},
		Confidence: domain.ConfidenceLow,
	}
}
