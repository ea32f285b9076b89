package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"news-intel/internal/domain"
)

// PgVectorIndex implements the similarity index over pgvector tables:
// one embedding per article for deduplication and retrieval, plus one
// embedding per extracted entity text for entity-level lookups.
type PgVectorIndex struct {
	pool    *pgxpool.Pool
	encoder domain.VectorEncoder
}

func NewPgVectorIndex(pool *pgxpool.Pool, encoder domain.VectorEncoder) *PgVectorIndex {
	return &PgVectorIndex{pool: pool, encoder: encoder}
}

func (x *PgVectorIndex) IndexArticle(ctx context.Context, article domain.Article, entityTexts []string) error {
	texts := append([]string{article.FullText()}, entityTexts...)
	embeddings, err := x.encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to encode article: %w", err)
	}
	if len(embeddings) != len(texts) {
		return fmt.Errorf("embeddings count mismatch: want %d, got %d", len(texts), len(embeddings))
	}

	now := time.Now()
	query := `
		INSERT INTO article_embeddings (article_id, embedding, embedder_version, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (article_id) DO UPDATE
		SET embedding = EXCLUDED.embedding, embedder_version = EXCLUDED.embedder_version
	`
	_, err = x.pool.Exec(ctx, query,
		article.ID, pgvector.NewVector(embeddings[0]), x.encoder.Version(), now,
	)
	if err != nil {
		return fmt.Errorf("failed to store article embedding: %w", err)
	}

	if len(entityTexts) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(entityTexts))
	for i, text := range entityTexts {
		rows[i] = []interface{}{
			uuid.New(),
			article.ID,
			text,
			pgvector.NewVector(embeddings[i+1]),
			now,
		}
	}
	_, err = x.pool.CopyFrom(
		ctx,
		pgx.Identifier{"entity_embeddings"},
		[]string{"id", "article_id", "entity_text", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to store entity embeddings: %w", err)
	}
	return nil
}

func (x *PgVectorIndex) NearestNeighbors(ctx context.Context, queryText string, k int) ([]domain.NeighborHit, error) {
	embeddings, err := x.encoder.Encode(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	// <=> is cosine distance; score is cosine similarity. Ties are pinned
	// to ascending article ID so duplicate tie-breaking is deterministic.
	query := `
		SELECT article_id, 1 - (embedding <=> $1) AS score
		FROM article_embeddings
		ORDER BY embedding <=> $1 ASC, article_id ASC
		LIMIT $2
	`
	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(embeddings[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	var hits []domain.NeighborHit
	for rows.Next() {
		var hit domain.NeighborHit
		if err := rows.Scan(&hit.ArticleID, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

// SearchByEntity returns article IDs whose stored entity texts are
// nearest to the given entity text, nearest first.
func (x *PgVectorIndex) SearchByEntity(ctx context.Context, entityText string, k int) ([]string, error) {
	embeddings, err := x.encoder.Encode(ctx, []string{entityText})
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	// DISTINCT ON needs article_id first in its ORDER BY, which is not the
	// ranking we want to keep. The inner select picks each article's closest
	// entity; the outer select restores nearest-first order before LIMIT.
	query := `
		SELECT article_id FROM (
			SELECT DISTINCT ON (article_id) article_id, embedding <=> $1 AS distance
			FROM entity_embeddings
			ORDER BY article_id, embedding <=> $1
		) nearest
		ORDER BY distance ASC, article_id ASC
		LIMIT $2
	`
	rows, err := x.pool.Query(ctx, query, pgvector.NewVector(embeddings[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search entity embeddings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity hit: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (x *PgVectorIndex) Delete(ctx context.Context, articleID string) error {
	if _, err := x.pool.Exec(ctx, `DELETE FROM entity_embeddings WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete entity embeddings: %w", err)
	}
	if _, err := x.pool.Exec(ctx, `DELETE FROM article_embeddings WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete article embedding: %w", err)
	}
	return nil
}

var _ domain.SimilarityIndex = (*PgVectorIndex)(nil)
