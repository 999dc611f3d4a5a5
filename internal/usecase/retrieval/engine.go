package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"finqa-orchestrator/internal/domain"
)

// keywordBoost is the per-matching-keyword distance reduction applied
// by the hybrid strategy.
const keywordBoost = 0.1

// Engine runs one retrieval strategy against the vector index. It is
// safe for concurrent use: all state is injected and read-only.
type Engine struct {
	index    domain.VectorIndex
	embedder domain.Embedder
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine over the given index and
// embedder.
func NewEngine(index domain.VectorIndex, embedder domain.Embedder, logger *slog.Logger) *Engine {
	return &Engine{index: index, embedder: embedder, logger: logger}
}

type strategyFunc func(e *Engine, ctx context.Context, query string, opts Options) ([]domain.EvidenceItem, error)

var strategyFuncs = map[Strategy]strategyFunc{
	StrategySemantic:       (*Engine).semantic,
	StrategyHybrid:         (*Engine).hybrid,
	StrategyCompanyFocused: (*Engine).companyFocused,
	StrategyTemporal:       (*Engine).temporal,
}

// Retrieve runs a sub-query under the given strategy and returns
// evidence ordered by ascending distance.
func (e *Engine) Retrieve(ctx context.Context, query string, strategy Strategy, opts Options) ([]domain.EvidenceItem, error) {
	fn, ok := strategyFuncs[strategy]
	if !ok {
		e.logger.Warn("unknown_retrieval_strategy", slog.String("strategy", string(strategy)))
		fn = (*Engine).semantic
	}

	items, err := fn(e, ctx, query, opts)
	if err != nil {
		return nil, err
	}

	e.logger.Info("retrieval_completed",
		slog.String("strategy", string(strategy)),
		slog.String("sub_query", query),
		slog.Int("result_count", len(items)))

	return items, nil
}

func (e *Engine) semantic(ctx context.Context, query string, opts Options) ([]domain.EvidenceItem, error) {
	return e.queryIndex(ctx, query, opts.limit(), nil)
}

// hybrid re-ranks semantic results lexically: each boost keyword
// present in both the query and a result's text shaves 10% off that
// result's distance, clamped at zero.
func (e *Engine) hybrid(ctx context.Context, query string, opts Options) ([]domain.EvidenceItem, error) {
	items, err := e.semantic(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	for i := range items {
		matches := keywordMatches(queryLower, strings.ToLower(items[i].Text))
		adjusted := items[i].Distance * (1 - keywordBoost*float64(matches))
		if adjusted < 0 {
			adjusted = 0
		}
		items[i].Distance = adjusted
	}
	sortByDistance(items)
	return items, nil
}

// companyFocused queries once per company so a dominant company cannot
// crowd the others out of the evidence set.
func (e *Engine) companyFocused(ctx context.Context, query string, opts Options) ([]domain.EvidenceItem, error) {
	companies := opts.Companies
	if len(companies) == 0 {
		companies = domain.AllCompanies()
	}

	limit := opts.limit()
	perCompany := (limit+len(companies)-1)/len(companies) + 1

	embedding, err := e.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var items []domain.EvidenceItem
	for _, company := range companies {
		partial, err := e.index.Query(ctx, embedding, perCompany, &domain.Filter{Company: company})
		if err != nil {
			return nil, fmt.Errorf("company focused retrieval for %s: %w", company, err)
		}
		items = append(items, partial...)
	}

	sortByDistance(items)
	return truncate(items, limit), nil
}

// temporal queries once per year. Without years to pivot on it behaves
// like hybrid.
func (e *Engine) temporal(ctx context.Context, query string, opts Options) ([]domain.EvidenceItem, error) {
	if len(opts.Years) == 0 {
		return e.hybrid(ctx, query, opts)
	}

	limit := opts.limit()
	perYear := (limit+len(opts.Years)-1)/len(opts.Years) + 1

	embedding, err := e.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var items []domain.EvidenceItem
	for _, year := range opts.Years {
		partial, err := e.index.Query(ctx, embedding, perYear, &domain.Filter{Year: year})
		if err != nil {
			return nil, fmt.Errorf("temporal retrieval for %d: %w", year, err)
		}
		items = append(items, partial...)
	}

	sortByDistance(items)
	return truncate(items, limit), nil
}

func (e *Engine) queryIndex(ctx context.Context, query string, k int, filter *domain.Filter) ([]domain.EvidenceItem, error) {
	embedding, err := e.embedder.Embed(ctx, query, domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	items, err := e.index.Query(ctx, embedding, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return items, nil
}

func keywordMatches(queryLower, textLower string) int {
	matches := 0
	for _, keyword := range domain.HybridBoostKeywords {
		if strings.Contains(queryLower, keyword) && strings.Contains(textLower, keyword) {
			matches++
		}
	}
	return matches
}

func sortByDistance(items []domain.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})
}

func truncate(items []domain.EvidenceItem, limit int) []domain.EvidenceItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// MergeResults flattens per-sub-query result sets into one globally
// ordered evidence list. Duplicate chunk IDs keep their first
// occurrence, so earlier sub-queries win ties.
func MergeResults(resultSets [][]domain.EvidenceItem) []domain.EvidenceItem {
	seen := make(map[string]bool)
	var merged []domain.EvidenceItem
	for _, set := range resultSets {
		for _, item := range set {
			if seen[item.ChunkID] {
				continue
			}
			seen[item.ChunkID] = true
			merged = append(merged, item)
		}
	}
	sortByDistance(merged)
	return merged
}
