package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"finqa-orchestrator/internal/domain"
)

const (
	contextItemsPerSubQuery = 3
	contextCharBudget       = 500
	sourcesPerSubQuery      = 2
	maxSources              = 5
	excerptMaxLen           = 200
	excerptMinSentenceLen   = 50
	synthesisTemperature    = 0.1
	synthesisMaxTokens      = 1000
)

// Synthesizer turns retrieved evidence into a final answer. It never
// returns an error: model failures degrade into a low-confidence
// apology answer with the sources still attached.
type Synthesizer struct {
	llm    domain.LLMClient
	parser AnswerParser
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer backed by the given model
// client and response parser.
func NewSynthesizer(llm domain.LLMClient, parser AnswerParser, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, parser: parser, logger: logger}
}

// Synthesize composes the prompt for the query type, generates, and
// parses the structured response. Evidence is keyed by sub-query text.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, subQueries []string, evidence map[string][]domain.EvidenceItem, queryType domain.QueryType) *domain.Answer {
	contextBlock := buildContext(subQueries, evidence)
	sources := buildSources(query, subQueries, evidence)
	prompt := promptFor(queryType)(query, contextBlock)

	answer := &domain.Answer{
		Query:      query,
		SubQueries: subQueries,
		Sources:    sources,
	}

	raw, err := s.llm.Generate(ctx, prompt, synthesisTemperature, synthesisMaxTokens)
	if err != nil {
		s.logger.Warn("synthesis_generation_failed",
			slog.String("error", err.Error()))
		answer.Answer = "I apologize, but I was unable to generate an answer due to a technical issue. Please try again."
		answer.Reasoning = fmt.Sprintf("Answer generation failed: %v", err)
		answer.Confidence = domain.ConfidenceLow
		return answer
	}

	parsed := s.parser.Parse(raw)
	if !parsed.Parsed {
		answer.Answer = strings.TrimSpace(raw)
		answer.Reasoning = "Generated from available context"
		answer.Confidence = domain.ConfidenceMedium
		return answer
	}

	answer.Answer = parsed.Answer
	answer.Reasoning = parsed.Reasoning
	answer.Confidence = parsed.Confidence
	if answer.Confidence == "" {
		answer.Confidence = domain.ConfidenceLow
	}
	return answer
}

// buildContext renders the evidence block in sub-query order so the
// prompt is deterministic for a given evidence map.
func buildContext(subQueries []string, evidence map[string][]domain.EvidenceItem) string {
	var b strings.Builder
	for _, subQuery := range subQueries {
		items := evidence[subQuery]
		if len(items) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Results for '%s':\n", subQuery)
		for i, item := range items {
			if i == contextItemsPerSubQuery {
				break
			}
			fmt.Fprintf(&b, "  [%d] %s %d: %s\n", i+1, item.Company, item.Year, truncateText(item.Text, contextCharBudget))
		}
	}
	return b.String()
}

type promptFunc func(query, contextBlock string) string

var promptFuncs = map[domain.QueryType]promptFunc{
	domain.QueryTypeSimpleDirect:   simplePrompt,
	domain.QueryTypeComparativeYoY: comparativePrompt,
	domain.QueryTypeCrossCompany:   crossCompanyPrompt,
}

func promptFor(queryType domain.QueryType) promptFunc {
	if fn, ok := promptFuncs[queryType]; ok {
		return fn
	}
	return complexPrompt
}

func simplePrompt(query, contextBlock string) string {
	return fmt.Sprintf(`You are a financial analyst. Answer this question using ONLY the provided context from SEC filings.

Question: %s

Context:
%s

Provide a direct, specific answer with the exact figure if available.
If the context doesn't contain the answer, say so clearly.

Format your response as:
ANSWER: [your answer]
REASONING: [brief explanation of how you found the answer]
CONFIDENCE: [high/medium/low]`, query, contextBlock)
}

func comparativePrompt(query, contextBlock string) string {
	return fmt.Sprintf(`You are a financial analyst. Answer this year-over-year comparison question using ONLY the provided context.

Question: %s

Context:
%s

Compare the figures across the years in question. Compute the change
and percentage growth where the data allows it. State which fiscal
years the figures come from.

Format your response as:
ANSWER: [your answer with the comparison]
REASONING: [the figures used and the calculation]
CONFIDENCE: [high/medium/low]`, query, contextBlock)
}

func crossCompanyPrompt(query, contextBlock string) string {
	return fmt.Sprintf(`You are a financial analyst. Answer this cross-company comparison question using ONLY the provided context.

Question: %s

Context:
%s

Compare the companies on the requested metric. Note any differences in
fiscal year definitions that affect comparability.

Format your response as:
ANSWER: [your answer ranking or comparing the companies]
REASONING: [the per-company figures used]
CONFIDENCE: [high/medium/low]`, query, contextBlock)
}

func complexPrompt(query, contextBlock string) string {
	return fmt.Sprintf(`You are a financial analyst. Answer this multi-part question using ONLY the provided context from SEC filings.

Question: %s

Context:
%s

Address each aspect of the question. Show intermediate figures and
calculations. If some aspect cannot be answered from the context, say
which one.

Format your response as:
ANSWER: [your complete answer]
REASONING: [how the pieces of context support it]
CONFIDENCE: [high/medium/low]`, query, contextBlock)
}

// buildSources collects the top chunks per sub-query as citations,
// deduplicated by company, year, and section, capped at maxSources.
func buildSources(query string, subQueries []string, evidence map[string][]domain.EvidenceItem) []domain.SourceCitation {
	seen := make(map[string]bool)
	var sources []domain.SourceCitation
	for _, subQuery := range subQueries {
		for i, item := range evidence[subQuery] {
			if i == sourcesPerSubQuery {
				break
			}
			key := fmt.Sprintf("%s|%d|%s", item.Company, item.Year, item.Section)
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, domain.SourceCitation{
				Company:        item.Company,
				Year:           item.Year,
				Excerpt:        bestExcerpt(item.Text, query),
				Section:        item.Section,
				RelevanceScore: math.Round((1-item.Distance)*1000) / 1000,
			})
			if len(sources) == maxSources {
				return sources
			}
		}
	}
	return sources
}

var (
	wordPattern     = regexp.MustCompile(`\w+`)
	sentenceSplitter = regexp.MustCompile(`[.!?]+`)
)

// bestExcerpt picks the sentence with the most query-term overlap,
// falling back to the head of the text when no sentence qualifies.
func bestExcerpt(text, query string) string {
	queryTerms := wordPattern.FindAllString(strings.ToLower(query), -1)

	best := ""
	bestOverlap := 0
	for _, sentence := range sentenceSplitter.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= excerptMinSentenceLen {
			continue
		}
		sentenceLower := strings.ToLower(sentence)
		overlap := 0
		for _, term := range queryTerms {
			if strings.Contains(sentenceLower, term) {
				overlap++
			}
		}
		if overlap > bestOverlap {
			bestOverlap = overlap
			best = sentence
		}
	}

	if best == "" {
		best = text
	}
	return truncateText(best, excerptMaxLen)
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
