package domain

import "context"

// LLMClient sends a prompt to a generative model and returns its free
// text. The caller performs its own structure extraction; no format
// guarantee is assumed beyond text.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	Version() string
}
