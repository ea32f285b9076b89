package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS articles (
		article_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		source TEXT NOT NULL,
		url TEXT,
		published_at TIMESTAMPTZ NOT NULL,
		is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
		duplicate_of TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS extracted_entities (
		id UUID PRIMARY KEY,
		article_id TEXT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		entity_text TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS stock_impacts (
		id UUID PRIMARY KEY,
		article_id TEXT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		stock_symbol TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		impact_kind TEXT NOT NULL,
		reasoning TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS article_embeddings (
		article_id TEXT PRIMARY KEY REFERENCES articles(article_id) ON DELETE CASCADE,
		embedding vector(768) NOT NULL,
		embedder_version TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS entity_embeddings (
		id UUID PRIMARY KEY,
		article_id TEXT NOT NULL REFERENCES articles(article_id) ON DELETE CASCADE,
		entity_text TEXT NOT NULL,
		embedding vector(768) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles (published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_extracted_entities_article_id ON extracted_entities (article_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_impacts_article_id ON stock_impacts (article_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_impacts_symbol ON stock_impacts (stock_symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_article_embeddings_hnsw
		ON article_embeddings USING hnsw (embedding vector_cosine_ops)`,
}

// InitSchema creates the tables and indexes the service needs. Every
// statement is idempotent so this is safe to run on each startup.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
