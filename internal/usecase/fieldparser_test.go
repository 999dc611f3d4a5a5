package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase"
)

func TestLabelParser_FullResponse(t *testing.T) {
	parser := usecase.NewLabelParser()

	raw := `ANSWER: Microsoft's total revenue in fiscal 2023 was $211.9 billion.
REASONING: The figure appears directly in the income statement excerpt.
CONFIDENCE: high`

	got := parser.Parse(raw)

	assert.True(t, got.Parsed)
	assert.Equal(t, "Microsoft's total revenue in fiscal 2023 was $211.9 billion.", got.Answer)
	assert.Equal(t, "The figure appears directly in the income statement excerpt.", got.Reasoning)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
}

func TestLabelParser_MultilineFields(t *testing.T) {
	parser := usecase.NewLabelParser()

	raw := "ANSWER: Revenue grew 61%.\nIt went from $26.9B to $43.3B.\nREASONING: Computed from both years.\nCONFIDENCE: medium"

	got := parser.Parse(raw)

	assert.True(t, got.Parsed)
	assert.Equal(t, "Revenue grew 61%.\nIt went from $26.9B to $43.3B.", got.Answer)
	assert.Equal(t, domain.ConfidenceMedium, got.Confidence)
}

func TestLabelParser_MissingAnswerLabel(t *testing.T) {
	parser := usecase.NewLabelParser()

	got := parser.Parse("The revenue was approximately $211.9 billion in 2023.")

	assert.False(t, got.Parsed)
	assert.Empty(t, got.Answer)
}

func TestLabelParser_MissingConfidence(t *testing.T) {
	parser := usecase.NewLabelParser()

	got := parser.Parse("ANSWER: about $10B\nREASONING: rough figure from the context")

	assert.True(t, got.Parsed)
	assert.Equal(t, "about $10B", got.Answer)
	assert.Equal(t, domain.Confidence(""), got.Confidence)
}

func TestLabelParser_ConfidenceCaseAndTrailingText(t *testing.T) {
	parser := usecase.NewLabelParser()

	got := parser.Parse("ANSWER: x\nREASONING: y\nCONFIDENCE: High (based on direct figures)")

	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
}

func TestLabelParser_UnknownConfidenceDropped(t *testing.T) {
	parser := usecase.NewLabelParser()

	got := parser.Parse("ANSWER: x\nCONFIDENCE: very sure")

	assert.True(t, got.Parsed)
	assert.Equal(t, domain.Confidence(""), got.Confidence)
}

func TestLabelParser_EmptyAnswerValueNotParsed(t *testing.T) {
	parser := usecase.NewLabelParser()

	got := parser.Parse("ANSWER:\nREASONING: none\nCONFIDENCE: low")

	assert.False(t, got.Parsed)
}
