package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"finqa-orchestrator/internal/domain"
)

// FilingChunkRepository implements domain.VectorIndex on the
// filing_chunks table:
//
//	chunk_id  text primary key
//	company   text not null
//	year      int  not null
//	section   text not null default ''
//	content   text not null
//	embedding vector not null
type FilingChunkRepository struct {
	pool *pgxpool.Pool
}

// NewFilingChunkRepository creates the pgvector-backed index.
func NewFilingChunkRepository(pool *pgxpool.Pool) domain.VectorIndex {
	return &FilingChunkRepository{pool: pool}
}

var _ domain.VectorIndex = (*FilingChunkRepository)(nil)

func (r *FilingChunkRepository) Query(ctx context.Context, embedding []float32, k int, filter *domain.Filter) ([]domain.EvidenceItem, error) {
	var (
		conditions []string
		args       []any
	)
	args = append(args, pgvector.NewVector(embedding))

	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Company != "" {
			conditions = append(conditions, "company = "+addArg(filter.Company))
		}
		if len(filter.Companies) > 0 {
			conditions = append(conditions, "company = ANY("+addArg(filter.Companies)+")")
		}
		if filter.Year != 0 {
			conditions = append(conditions, "year = "+addArg(filter.Year))
		}
		if len(filter.Years) > 0 {
			conditions = append(conditions, "year = ANY("+addArg(filter.Years)+")")
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT chunk_id, company, year, section, content, embedding <=> $1 AS distance
		FROM filing_chunks
		%s
		ORDER BY distance ASC
		LIMIT %s
	`, where, addArg(k))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filing_chunks: %w", err)
	}
	defer rows.Close()

	var items []domain.EvidenceItem
	for rows.Next() {
		var item domain.EvidenceItem
		if err := rows.Scan(&item.ChunkID, &item.Company, &item.Year, &item.Section, &item.Text, &item.Distance); err != nil {
			return nil, fmt.Errorf("scan filing chunk: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filing chunks: %w", err)
	}
	return items, nil
}

// Upsert replaces any existing rows with the same chunk IDs, then bulk
// inserts via CopyFrom. Run it inside a transaction so the delete and
// insert land together.
func (r *FilingChunkRepository) Upsert(ctx context.Context, chunks []domain.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ChunkID
	}

	if tx := ExtractTx(ctx); tx != nil {
		return r.upsertInTx(ctx, tx, chunkIDs, chunks)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.upsertInTx(ctx, tx, chunkIDs, chunks); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *FilingChunkRepository) upsertInTx(ctx context.Context, tx pgx.Tx, chunkIDs []string, chunks []domain.IndexedChunk) error {
	if _, err := tx.Exec(ctx, `DELETE FROM filing_chunks WHERE chunk_id = ANY($1)`, chunkIDs); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	rows := make([][]any, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []any{
			chunk.ChunkID,
			chunk.Company,
			chunk.Year,
			chunk.Section,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
		}
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"filing_chunks"},
		[]string{"chunk_id", "company", "year", "section", "content", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy filing chunks: %w", err)
	}
	if copied != int64(len(chunks)) {
		return fmt.Errorf("copied %d of %d chunks", copied, len(chunks))
	}
	return nil
}

func (r *FilingChunkRepository) Stats(ctx context.Context) (*domain.IndexStats, error) {
	stats := &domain.IndexStats{}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM filing_chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("count filing chunks: %w", err)
	}

	query := `
		SELECT
			ARRAY(SELECT DISTINCT company FROM filing_chunks ORDER BY company),
			ARRAY(SELECT DISTINCT year FROM filing_chunks ORDER BY year),
			ARRAY(SELECT DISTINCT section FROM filing_chunks WHERE section <> '' ORDER BY section)
	`
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Companies, &stats.Years, &stats.Sections); err != nil {
		return nil, fmt.Errorf("collect index metadata: %w", err)
	}
	return stats, nil
}
