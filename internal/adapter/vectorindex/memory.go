// Package vectorindex provides the in-memory VectorIndex used for
// local development and tests, selected with INDEX_BACKEND=memory.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"finqa-orchestrator/internal/domain"
)

// MemoryIndex is a map-backed vector index with exact cosine-distance
// search. Safe for concurrent use.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]domain.IndexedChunk
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]domain.IndexedChunk)}
}

var _ domain.VectorIndex = (*MemoryIndex)(nil)

func (m *MemoryIndex) Query(_ context.Context, embedding []float32, k int, filter *domain.Filter) ([]domain.EvidenceItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []domain.EvidenceItem
	for _, chunk := range m.chunks {
		item := domain.EvidenceItem{
			ChunkID:  chunk.ChunkID,
			Text:     chunk.Text,
			Company:  chunk.Company,
			Year:     chunk.Year,
			Section:  chunk.Section,
			Distance: cosineDistance(embedding, chunk.Embedding),
		}
		if !filter.Matches(item) {
			continue
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})
	if len(items) > k {
		items = items[:k]
	}
	return items, nil
}

func (m *MemoryIndex) Upsert(_ context.Context, chunks []domain.IndexedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ChunkID] = chunk
	}
	return nil
}

func (m *MemoryIndex) Stats(_ context.Context) (*domain.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	companies := make(map[string]bool)
	years := make(map[int]bool)
	sections := make(map[string]bool)
	for _, chunk := range m.chunks {
		companies[chunk.Company] = true
		years[chunk.Year] = true
		if chunk.Section != "" {
			sections[chunk.Section] = true
		}
	}

	stats := &domain.IndexStats{
		TotalChunks: int64(len(m.chunks)),
		Companies:   sortedKeys(companies),
		Years:       sortedIntKeys(years),
		Sections:    sortedKeys(sections),
	}
	return stats, nil
}

// cosineDistance is 1 - cosine similarity, matching pgvector's <=>
// operator. Degenerate vectors get the maximum distance.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}
