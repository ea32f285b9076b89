package domain

import (
	"context"
	"time"
)

// ArticleRecord is the persisted form of an article together with its
// deduplication outcome.
type ArticleRecord struct {
	Article     Article
	IsDuplicate bool
	DuplicateOf string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProcessedArticle is the read-path view of an article with its stored
// entities and impacts attached.
type ProcessedArticle struct {
	Article      Article
	IsDuplicate  bool
	DuplicateOf  string
	Entities     []Entity
	StockImpacts []StockImpact
}

// ArticleFilter narrows List results.
type ArticleFilter struct {
	IDs               []string
	DateFrom          *time.Time
	DateTo            *time.Time
	ExcludeDuplicates bool
	Limit             int
}

// ArticleRepository is the durable store for articles, entities and
// impacts. Implementations must honor an ambient transaction when one is
// present on the context.
type ArticleRepository interface {
	// InsertArticle stores the article row. Inserting an already-known
	// article ID fails with a unique-constraint error.
	InsertArticle(ctx context.Context, rec *ArticleRecord) error

	// BulkInsertEntities stores one row per entity for the article.
	BulkInsertEntities(ctx context.Context, articleID string, entities []Entity) error

	// BulkInsertImpacts stores one row per stock impact for the article.
	BulkInsertImpacts(ctx context.Context, articleID string, impacts []StockImpact) error

	// GetProcessed returns the article with entities and impacts attached.
	// Returns nil, nil when not found.
	GetProcessed(ctx context.Context, articleID string) (*ProcessedArticle, error)

	// List returns processed articles matching the filter.
	List(ctx context.Context, filter ArticleFilter) ([]ProcessedArticle, error)

	// Delete removes the article and its entity and impact rows.
	Delete(ctx context.Context, articleID string) error
}

// TransactionManager runs a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
