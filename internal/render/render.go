// Package render formats answers for terminal and document output.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"finqa-orchestrator/internal/domain"
)

// Output formats accepted by the CLI.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Format renders an answer in the named format.
func Format(answer *domain.Answer, format string) (string, error) {
	switch format {
	case FormatText:
		return FormatAsText(answer), nil
	case FormatMarkdown:
		return FormatAsMarkdown(answer), nil
	case FormatJSON:
		return FormatAsJSON(answer)
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

// FormatAsText renders a plain terminal layout.
func FormatAsText(answer *domain.Answer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", answer.Query)
	fmt.Fprintf(&b, "Answer: %s\n", answer.Answer)
	fmt.Fprintf(&b, "Confidence: %s\n", answer.Confidence)
	if answer.Reasoning != "" {
		fmt.Fprintf(&b, "\nReasoning: %s\n", answer.Reasoning)
	}
	if len(answer.SubQueries) > 0 {
		fmt.Fprintf(&b, "\nSub-queries analyzed: %s\n", strings.Join(answer.SubQueries, ", "))
	}
	if len(answer.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for i, source := range answer.Sources {
			fmt.Fprintf(&b, "  %d. %s %d (%s, relevance %.3f)\n     %s\n",
				i+1, source.Company, source.Year, sectionOrDefault(source.Section),
				source.RelevanceScore, source.Excerpt)
		}
	}
	return b.String()
}

// FormatAsMarkdown renders a document layout with a sources table.
func FormatAsMarkdown(answer *domain.Answer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", answer.Query)
	fmt.Fprintf(&b, "%s\n\n", answer.Answer)
	fmt.Fprintf(&b, "**Confidence:** %s\n", answer.Confidence)
	if answer.Reasoning != "" {
		fmt.Fprintf(&b, "\n**Reasoning:** %s\n", answer.Reasoning)
	}
	if len(answer.SubQueries) > 0 {
		b.WriteString("\n**Sub-queries analyzed:**\n\n")
		for _, subQuery := range answer.SubQueries {
			fmt.Fprintf(&b, "- %s\n", subQuery)
		}
	}
	if len(answer.Sources) > 0 {
		b.WriteString("\n| Company | Year | Section | Relevance |\n")
		b.WriteString("|---------|------|---------|-----------|\n")
		for _, source := range answer.Sources {
			fmt.Fprintf(&b, "| %s | %d | %s | %.3f |\n",
				source.Company, source.Year, sectionOrDefault(source.Section), source.RelevanceScore)
		}
	}
	return b.String()
}

// FormatAsJSON renders the answer as indented JSON.
func FormatAsJSON(answer *domain.Answer) (string, error) {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal answer: %w", err)
	}
	return string(data), nil
}

func sectionOrDefault(section string) string {
	if section == "" {
		return "filing"
	}
	return section
}
