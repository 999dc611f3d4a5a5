package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"finqa-orchestrator/internal/domain"
)

// patternRule binds one query type to the regex patterns that select
// it. Rules are evaluated in order; the first type with a matching
// pattern wins. ComplexMultiAspect is deliberately absent: it is only
// ever reached through the model fallback.
type patternRule struct {
	queryType domain.QueryType
	patterns  []*regexp.Regexp
}

var classificationRules = []patternRule{
	{
		queryType: domain.QueryTypeSimpleDirect,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`what (was|is) .+ (revenue|income|profit|margin)`),
			regexp.MustCompile(`(revenue|income|sales|profit) .+ (in|for) \d{4}`),
			regexp.MustCompile(`total .+ \d{4}`),
		},
	},
	{
		queryType: domain.QueryTypeComparativeYoY,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(grow|growth|increase|decrease|change).* from \d{4} to \d{4}`),
			regexp.MustCompile(`compare .+ \d{4} (and|to|vs) \d{4}`),
			regexp.MustCompile(`(year over year|yoy|annually)`),
		},
	},
	{
		queryType: domain.QueryTypeCrossCompany,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`which company .+ (highest|lowest|best|worst)`),
			regexp.MustCompile(`compare .+ (across|between) .+ (companies|google|microsoft|nvidia)`),
			regexp.MustCompile(`(google|microsoft|nvidia) .+ (vs|versus|compared to)`),
		},
	},
	{
		queryType: domain.QueryTypeSegmentAnalysis,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`percentage of .+ revenue`),
			regexp.MustCompile(`what portion .+ came from`),
			regexp.MustCompile(`breakdown .+ by segment`),
		},
	},
}

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// Classifier maps a raw question to a query type plus the extracted
// companies, years, and metrics. It never returns an error: when both
// the pattern table and the model fail, it falls back to
// ComplexMultiAspect deterministically.
type Classifier struct {
	llm    domain.LLMClient
	logger *slog.Logger
}

// NewClassifier creates a classifier backed by the given model client.
func NewClassifier(llm domain.LLMClient, logger *slog.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger}
}

// Classify extracts entities and resolves the query type.
func (c *Classifier) Classify(ctx context.Context, query string) (domain.QueryType, *domain.Classification) {
	queryLower := strings.ToLower(query)

	companies := domain.ExtractCompanies(queryLower)
	years := extractYears(queryLower)
	metrics := extractMetrics(queryLower)

	queryType, matched := classifyByPatterns(queryLower)
	if !matched {
		queryType = c.classifyWithModel(ctx, query)
	}

	cls := &domain.Classification{
		Type:            queryType,
		Companies:       companies,
		Years:           years,
		Metrics:         metrics,
		ComplexityScore: complexityScore(queryLower, companies, years, metrics),
	}

	c.logger.Info("query_classified",
		slog.String("query_type", string(queryType)),
		slog.Bool("pattern_matched", matched),
		slog.Any("companies", companies),
		slog.Any("years", years),
		slog.Int("complexity_score", cls.ComplexityScore))

	return queryType, cls
}

func classifyByPatterns(queryLower string) (domain.QueryType, bool) {
	for _, rule := range classificationRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(queryLower) {
				return rule.queryType, true
			}
		}
	}
	return "", false
}

const classificationPromptFormat = `Classify this financial query into one of these categories:

1. SIMPLE_DIRECT: Asking for a single metric for one company/year
2. COMPARATIVE_YOY: Comparing metrics across different years
3. CROSS_COMPANY: Comparing metrics across different companies
4. COMPLEX_MULTI_ASPECT: Requires multiple calculations/comparisons
5. SEGMENT_ANALYSIS: Asking about business segment breakdowns

Query: "%s"

Respond with just the category name.`

func (c *Classifier) classifyWithModel(ctx context.Context, query string) domain.QueryType {
	prompt := fmt.Sprintf(classificationPromptFormat, query)

	raw, err := c.llm.Generate(ctx, prompt, 0, 50)
	if err != nil {
		c.logger.Warn("model_classification_failed",
			slog.String("error", err.Error()))
		return domain.QueryTypeComplexMultiAspect
	}

	category := strings.TrimSpace(raw)
	for _, queryType := range domain.QueryTypes() {
		if strings.EqualFold(category, string(queryType)) {
			return queryType
		}
	}

	c.logger.Warn("model_classification_unparseable",
		slog.String("response", category))
	return domain.QueryTypeComplexMultiAspect
}

func extractYears(queryLower string) []int {
	seen := make(map[int]bool)
	var years []int
	for _, match := range yearPattern.FindAllStringSubmatch(queryLower, -1) {
		year, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if year < domain.MinFilingYear || year > domain.MaxFilingYear {
			continue
		}
		if !seen[year] {
			seen[year] = true
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years
}

func extractMetrics(queryLower string) []string {
	var metrics []string
	for _, metric := range domain.MetricVocabulary {
		if strings.Contains(queryLower, metric) {
			metrics = append(metrics, metric)
		}
	}
	return metrics
}

// complexityScore is informational only; nothing downstream consumes
// it, but it is surfaced in logs for diagnostics.
func complexityScore(queryLower string, companies []string, years []int, metrics []string) int {
	score := 1
	if len(companies) > 1 {
		score += len(companies)
	}
	if len(years) > 1 {
		score += len(years)
	}
	if len(metrics) > 1 {
		score += len(metrics)
	}
	for _, keyword := range domain.ComplexityKeywords {
		if strings.Contains(queryLower, keyword) {
			score++
		}
	}
	return score
}
