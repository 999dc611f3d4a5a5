package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finqa-orchestrator/internal/domain"
	"finqa-orchestrator/internal/usecase"
)

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	args := m.Called(ctx, prompt, temperature, maxTokens)
	return args.String(0), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify_PatternMatches(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  domain.QueryType
	}{
		{"simple what-was", "What was Microsoft's total revenue in 2023?", domain.QueryTypeSimpleDirect},
		{"simple metric in year", "Google revenue reported in 2022", domain.QueryTypeSimpleDirect},
		{"yoy grow from-to", "How much did NVIDIA's data center revenue grow from 2022 to 2023?", domain.QueryTypeComparativeYoY},
		{"yoy keyword", "Show Microsoft earnings year over year", domain.QueryTypeComparativeYoY},
		{"cross which company", "Which company had the highest operating margin?", domain.QueryTypeCrossCompany},
		{"cross versus", "Google margins vs Microsoft margins", domain.QueryTypeCrossCompany},
		{"segment percentage", "What percentage of Google's revenue came from advertising?", domain.QueryTypeSegmentAnalysis},
		{"segment breakdown", "Give me the NVIDIA breakdown of revenue by segment", domain.QueryTypeSegmentAnalysis},
	}

	mockLLM := new(mockLLMClient)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, cls := classifier.Classify(context.Background(), tc.query)
			assert.Equal(t, tc.want, got)
			require.NotNil(t, cls)
			assert.Equal(t, tc.want, cls.Type)
		})
	}

	// Pattern hits never reach the model.
	mockLLM.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClassify_EntityExtraction(t *testing.T) {
	mockLLM := new(mockLLMClient)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	_, cls := classifier.Classify(context.Background(), "Compare Microsoft and Google revenue between 2022 and 2023")

	assert.Equal(t, []string{"GOOGL", "MSFT"}, cls.Companies)
	assert.Equal(t, []int{2022, 2023}, cls.Years)
	assert.Contains(t, cls.Metrics, "revenue")
}

func TestClassify_YearsOutOfRangeIgnored(t *testing.T) {
	mockLLM := new(mockLLMClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything, 0.0, 50).Return("SIMPLE_DIRECT", nil)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	_, cls := classifier.Classify(context.Background(), "Microsoft financial results 2019 and 2030 and fiscal 2024")

	assert.Equal(t, []int{2024}, cls.Years)
}

func TestClassify_DuplicateYearsDeduplicated(t *testing.T) {
	mockLLM := new(mockLLMClient)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	_, cls := classifier.Classify(context.Background(), "Compare revenue in 2023 and 2023 vs 2021")

	assert.Equal(t, []int{2021, 2023}, cls.Years)
}

func TestClassify_ModelFallback(t *testing.T) {
	mockLLM := new(mockLLMClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything, 0.0, 50).Return("segment_analysis", nil)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	// Financial wording that matches no rule pattern.
	got, _ := classifier.Classify(context.Background(), "Tell me about the financial health of these businesses")

	assert.Equal(t, domain.QueryTypeSegmentAnalysis, got)
	mockLLM.AssertExpectations(t)
}

func TestClassify_ModelFallbackCaseInsensitive(t *testing.T) {
	mockLLM := new(mockLLMClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything, 0.0, 50).Return("  CROSS_COMPANY\n", nil)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	got, _ := classifier.Classify(context.Background(), "Rank these businesses by their financial strength")

	assert.Equal(t, domain.QueryTypeCrossCompany, got)
}

func TestClassify_ModelErrorDefaultsToComplex(t *testing.T) {
	mockLLM := new(mockLLMClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything, 0.0, 50).Return("", errors.New("upstream unavailable"))
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	got, _ := classifier.Classify(context.Background(), "Tell me about the financial health of these businesses")

	assert.Equal(t, domain.QueryTypeComplexMultiAspect, got)
}

func TestClassify_ModelGarbageDefaultsToComplex(t *testing.T) {
	mockLLM := new(mockLLMClient)
	mockLLM.On("Generate", mock.Anything, mock.Anything, 0.0, 50).Return("I think this is probably a simple question", nil)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	got, _ := classifier.Classify(context.Background(), "Tell me about the financial health of these businesses")

	assert.Equal(t, domain.QueryTypeComplexMultiAspect, got)
}

func TestClassify_ComplexityScore(t *testing.T) {
	mockLLM := new(mockLLMClient)
	classifier := usecase.NewClassifier(mockLLM, discardLogger())

	// 1 base + 2 companies + 2 years + "compare" + "growth".
	_, cls := classifier.Classify(context.Background(), "Compare Google and Microsoft revenue growth from 2022 to 2023")

	assert.Equal(t, 7, cls.ComplexityScore)
}
