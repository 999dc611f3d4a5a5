package domain

import "context"

// EmbedMode selects the embedding task: documents at index time,
// queries at retrieval time.
type EmbedMode string

const (
	EmbedDocument EmbedMode = "retrieval_document"
	EmbedQuery    EmbedMode = "retrieval_query"
)

// Embedder produces one vector per text. No batching is assumed.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbedMode) ([]float32, error)
	Version() string
}
