package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"finqa-orchestrator/internal/domain"
)

const embedBatchSize = 50

// IndexChunksUsecase embeds pre-chunked filing text and writes it to
// the vector index.
type IndexChunksUsecase interface {
	// IndexChunks returns the number of chunks indexed. Invalid chunks
	// are skipped, not fatal.
	IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error)
}

type indexChunksUsecase struct {
	index    domain.VectorIndex
	embedder domain.Embedder
	txm      domain.TransactionManager
	logger   *slog.Logger
}

// NewIndexChunksUsecase creates the indexing usecase. The transaction
// manager scopes each upsert batch; pass the noop manager for
// non-transactional backends.
func NewIndexChunksUsecase(index domain.VectorIndex, embedder domain.Embedder, txm domain.TransactionManager, logger *slog.Logger) IndexChunksUsecase {
	return &indexChunksUsecase{index: index, embedder: embedder, txm: txm, logger: logger}
}

var _ IndexChunksUsecase = (*indexChunksUsecase)(nil)

func (u *indexChunksUsecase) IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	valid := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" || chunk.Company == "" || chunk.Year == 0 {
			u.logger.Warn("chunk_skipped",
				slog.String("chunk_id", chunk.ChunkID),
				slog.String("company", chunk.Company),
				slog.Int("year", chunk.Year))
			continue
		}
		if chunk.ChunkID == "" {
			chunk.ChunkID = uuid.NewString()
		}
		valid = append(valid, chunk)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	indexed := 0
	for start := 0; start < len(valid); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]

		embedded := make([]domain.IndexedChunk, 0, len(batch))
		for _, chunk := range batch {
			embedding, err := u.embedder.Embed(ctx, chunk.Text, domain.EmbedDocument)
			if err != nil {
				return indexed, fmt.Errorf("embed chunk %s: %w", chunk.ChunkID, err)
			}
			embedded = append(embedded, domain.IndexedChunk{Chunk: chunk, Embedding: embedding})
		}

		err := u.txm.RunInTx(ctx, func(txCtx context.Context) error {
			return u.index.Upsert(txCtx, embedded)
		})
		if err != nil {
			return indexed, fmt.Errorf("upsert batch: %w", err)
		}
		indexed += len(embedded)
	}

	u.logger.Info("chunks_indexed",
		slog.Int("requested", len(chunks)),
		slog.Int("indexed", indexed),
		slog.String("embedder_version", u.embedder.Version()))

	return indexed, nil
}
