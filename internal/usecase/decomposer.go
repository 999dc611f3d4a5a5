package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"finqa-orchestrator/internal/domain"
)

// Decomposer expands one classified query into the sub-queries the
// retrieval engine runs. Every path returns at least one sub-query;
// the degenerate expansion is the original query itself.
type Decomposer struct {
	llm    domain.LLMClient
	logger *slog.Logger
}

// NewDecomposer creates a decomposer backed by the given model client.
func NewDecomposer(llm domain.LLMClient, logger *slog.Logger) *Decomposer {
	return &Decomposer{llm: llm, logger: logger}
}

type decomposeFunc func(d *Decomposer, ctx context.Context, query string, cls *domain.Classification) []string

var decomposeFuncs = map[domain.QueryType]decomposeFunc{
	domain.QueryTypeSimpleDirect:       (*Decomposer).decomposeIdentity,
	domain.QueryTypeComparativeYoY:     (*Decomposer).decomposeComparativeYoY,
	domain.QueryTypeCrossCompany:       (*Decomposer).decomposeCrossCompany,
	domain.QueryTypeSegmentAnalysis:    (*Decomposer).decomposeSegmentAnalysis,
	domain.QueryTypeComplexMultiAspect: (*Decomposer).decomposeWithModel,
}

// Decompose produces the sub-query list for a classified query.
func (d *Decomposer) Decompose(ctx context.Context, query string, queryType domain.QueryType, cls *domain.Classification) []string {
	fn, ok := decomposeFuncs[queryType]
	if !ok {
		fn = (*Decomposer).decomposeIdentity
	}

	subQueries := fn(d, ctx, query, cls)
	if len(subQueries) == 0 {
		subQueries = []string{query}
	}

	d.logger.Info("query_decomposed",
		slog.String("query_type", string(queryType)),
		slog.Int("sub_query_count", len(subQueries)))

	return subQueries
}

func (d *Decomposer) decomposeIdentity(_ context.Context, query string, _ *domain.Classification) []string {
	return []string{query}
}

// decomposeComparativeYoY expands a cross-year comparison into one
// targeted sub-query per company, metric, and year. With fewer than
// two years there is nothing to compare across, so the query passes
// through unchanged.
func (d *Decomposer) decomposeComparativeYoY(_ context.Context, query string, cls *domain.Classification) []string {
	if len(cls.Years) < 2 {
		return []string{query}
	}

	companies := cls.Companies
	if len(companies) == 0 {
		companies = domain.AllCompanies()
	}
	metrics := cls.Metrics
	if len(metrics) == 0 {
		metrics = []string{"revenue"}
	}

	var subQueries []string
	for _, company := range companies {
		for _, metric := range metrics {
			for _, year := range cls.Years {
				subQueries = append(subQueries, fmt.Sprintf("%s %s %d", company, metric, year))
			}
		}
	}
	return subQueries
}

func (d *Decomposer) decomposeCrossCompany(_ context.Context, _ string, cls *domain.Classification) []string {
	companies := cls.Companies
	if len(companies) == 0 {
		companies = domain.AllCompanies()
	}
	metrics := cls.Metrics
	if len(metrics) == 0 {
		metrics = []string{"operating margin"}
	}
	year := firstYear(cls)

	var subQueries []string
	for _, company := range companies {
		for _, metric := range metrics {
			subQueries = append(subQueries, fmt.Sprintf("%s %s %d", company, metric, year))
		}
	}
	return subQueries
}

// decomposeSegmentAnalysis pairs a total-revenue sub-query with a
// segment-breakdown sub-query per company, so the synthesizer can
// relate segment figures to the whole.
func (d *Decomposer) decomposeSegmentAnalysis(_ context.Context, query string, cls *domain.Classification) []string {
	companies := cls.Companies
	if len(companies) == 0 {
		companies = segmentCompaniesFromQuery(query)
	}
	year := firstYear(cls)

	var subQueries []string
	for _, company := range companies {
		subQueries = append(subQueries,
			fmt.Sprintf("%s total revenue %d", company, year),
			fmt.Sprintf("%s segment revenue breakdown %d", company, year))
	}
	return subQueries
}

func segmentCompaniesFromQuery(query string) []string {
	if companies := domain.ExtractCompanies(strings.ToLower(query)); len(companies) > 0 {
		return companies
	}
	return domain.AllCompanies()
}

const decompositionPromptFormat = `Break down this complex financial question into 2-4 simpler sub-queries
that can each be answered by retrieving specific data:

Question: "%s"

Each sub-query should target one specific metric, company, and year.
Format each sub-query on its own line as: [COMPANY] [METRIC] [YEAR]

Sub-queries:`

var enumerationMarker = regexp.MustCompile(`^(\d+[.)]\s*|-\s*|\*\s*)`)

// decomposeWithModel asks the model to break a multi-aspect question
// apart. Model failures and unusable responses fall back to the raw
// query so retrieval always has something to run.
func (d *Decomposer) decomposeWithModel(ctx context.Context, query string, _ *domain.Classification) []string {
	prompt := fmt.Sprintf(decompositionPromptFormat, query)

	raw, err := d.llm.Generate(ctx, prompt, 0, 500)
	if err != nil {
		d.logger.Warn("model_decomposition_failed",
			slog.String("error", err.Error()))
		return []string{query}
	}

	var subQueries []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = enumerationMarker.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(strings.ToLower(line), "sub-queries") {
			continue
		}
		subQueries = append(subQueries, line)
	}

	if len(subQueries) == 0 {
		d.logger.Warn("model_decomposition_empty", slog.String("response", raw))
		return []string{query}
	}
	return subQueries
}

func firstYear(cls *domain.Classification) int {
	if len(cls.Years) > 0 {
		return cls.Years[0]
	}
	return domain.DefaultYear
}
