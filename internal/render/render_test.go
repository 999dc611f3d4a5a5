package render_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/render"
)

func answerFixture() *domain.Answer {
	return &domain.Answer{
		Query:      "What was Microsoft's revenue in 2023?",
		Answer:     "Total revenue was $211.9 billion.",
		Reasoning:  "Stated directly in the income statement.",
		SubQueries: []string{"What was Microsoft's revenue in 2023?"},
		Sources: []domain.SourceCitation{
			{Company: "MSFT", Year: 2023, Excerpt: "Total revenue was $211.9 billion...", Section: "Income Statements", RelevanceScore: 0.912},
		},
		Confidence: domain.ConfidenceHigh,
	}
}

func TestFormatAsText(t *testing.T) {
	out := render.FormatAsText(answerFixture())

	assert.Contains(t, out, "Question: What was Microsoft's revenue in 2023?")
	assert.Contains(t, out, "Answer: Total revenue was $211.9 billion.")
	assert.Contains(t, out, "Confidence: high")
	assert.Contains(t, out, "Sub-queries analyzed: What was Microsoft's revenue in 2023?")
	assert.Contains(t, out, "MSFT 2023 (Income Statements, relevance 0.912)")
}

func TestFormatAsText_JoinsSubQueries(t *testing.T) {
	answer := answerFixture()
	answer.SubQueries = []string{"MSFT revenue 2022", "MSFT revenue 2023"}

	out := render.FormatAsText(answer)

	assert.Contains(t, out, "Sub-queries analyzed: MSFT revenue 2022, MSFT revenue 2023")
}

func TestFormatAsText_EmptySectionGetsPlaceholder(t *testing.T) {
	answer := answerFixture()
	answer.Sources[0].Section = ""

	out := render.FormatAsText(answer)

	assert.Contains(t, out, "(filing, relevance 0.912)")
}

func TestFormatAsMarkdown(t *testing.T) {
	out := render.FormatAsMarkdown(answerFixture())

	assert.Contains(t, out, "## What was Microsoft's revenue in 2023?")
	assert.Contains(t, out, "**Confidence:** high")
	assert.Contains(t, out, "**Sub-queries analyzed:**")
	assert.Contains(t, out, "- What was Microsoft's revenue in 2023?")
	assert.Contains(t, out, "| MSFT | 2023 | Income Statements | 0.912 |")
}

func TestFormatAsJSON(t *testing.T) {
	out, err := render.FormatAsJSON(answerFixture())

	require.NoError(t, err)
	var decoded domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "Total revenue was $211.9 billion.", decoded.Answer)
}

func TestFormat_UnknownFormat(t *testing.T) {
	_, err := render.Format(answerFixture(), "yaml")

	assert.Error(t, err)
}

func TestFormat_Dispatch(t *testing.T) {
	for _, format := range []string{render.FormatText, render.FormatJSON, render.FormatMarkdown} {
		out, err := render.Format(answerFixture(), format)
		require.NoError(t, err)
		assert.NotEmpty(t, out)
	}
}
