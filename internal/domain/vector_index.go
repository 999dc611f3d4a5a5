package domain

import "context"

// Filter narrows a vector query to matching chunk metadata. Zero-value
// fields are ignored; the plural fields express set membership.
type Filter struct {
	Company   string
	Companies []string
	Year      int
	Years     []int
}

// Empty reports whether the filter imposes no constraint.
func (f *Filter) Empty() bool {
	return f == nil ||
		(f.Company == "" && len(f.Companies) == 0 && f.Year == 0 && len(f.Years) == 0)
}

// Matches reports whether an item's metadata satisfies the filter.
func (f *Filter) Matches(item EvidenceItem) bool {
	if f == nil {
		return true
	}
	if f.Company != "" && item.Company != f.Company {
		return false
	}
	if len(f.Companies) > 0 && !containsString(f.Companies, item.Company) {
		return false
	}
	if f.Year != 0 && item.Year != f.Year {
		return false
	}
	if len(f.Years) > 0 && !containsInt(f.Years, item.Year) {
		return false
	}
	return true
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Chunk is one filing span produced by the external chunker, ready to
// be embedded and indexed.
type Chunk struct {
	ChunkID string `json:"chunk_id"`
	Company string `json:"company"`
	Year    int    `json:"year"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

// IndexedChunk pairs a chunk with its document embedding.
type IndexedChunk struct {
	Chunk
	Embedding []float32
}

// IndexStats summarizes the indexed corpus.
type IndexStats struct {
	TotalChunks int64    `json:"total_chunks"`
	Companies   []string `json:"companies"`
	Years       []int    `json:"years"`
	Sections    []string `json:"sections"`
}

// VectorIndex is the nearest-neighbor store the retrieval engine
// queries. Results come back ordered by ascending distance.
type VectorIndex interface {
	// Query returns up to k items nearest to the embedding, optionally
	// constrained by filter. An empty result is not an error.
	Query(ctx context.Context, embedding []float32, k int, filter *Filter) ([]EvidenceItem, error)

	// Upsert inserts or replaces chunks by chunk ID.
	Upsert(ctx context.Context, chunks []IndexedChunk) error

	// Stats reports corpus-level counts and metadata values.
	Stats(ctx context.Context) (*IndexStats, error)
}
