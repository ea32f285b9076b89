package domain

import "context"

// NeighborHit is one nearest-neighbor match from the similarity index.
// Score is cosine similarity in [0,1], higher is closer.
type NeighborHit struct {
	ArticleID string
	Score     float64
}

// SimilarityIndex stores article-text embeddings and answers
// nearest-neighbor queries over them.
type SimilarityIndex interface {
	// IndexArticle embeds and stores the article's combined text plus
	// its entity text list.
	IndexArticle(ctx context.Context, article Article, entityTexts []string) error

	// NearestNeighbors returns up to k hits for the query text, ordered
	// by descending score. Ties are ordered by ascending article ID.
	NearestNeighbors(ctx context.Context, queryText string, k int) ([]NeighborHit, error)

	// SearchByEntity returns up to k article IDs whose indexed entity
	// texts are nearest to the given entity text, nearest first. Each
	// article appears at most once.
	SearchByEntity(ctx context.Context, entityText string, k int) ([]string, error)

	// Delete removes an article and its entity vectors from the index.
	Delete(ctx context.Context, articleID string) error
}

// VectorEncoder turns texts into embedding vectors.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}

// TaggedSpan is a named-entity span produced by a statistical tagger.
type TaggedSpan struct {
	Text string
	Kind string // "ORG", "PERSON", ...
}

// EntityTagger is the external NER capability.
type EntityTagger interface {
	Tag(ctx context.Context, text string) ([]TaggedSpan, error)
}

// EntityLists is the structured output of LLM entity extraction.
type EntityLists struct {
	Companies  []string
	Sectors    []string
	Regulators []string
	People     []string
	Events     []string
}

// EntityExtractor is the external language-model extraction capability.
type EntityExtractor interface {
	Extract(ctx context.Context, title, body string) (EntityLists, error)
}

// ImpactAnalyst is the external reasoning capability mapping an article
// and its entities to stock impacts.
type ImpactAnalyst interface {
	Infer(ctx context.Context, title, body string, entities EntityLists) ([]StockImpact, error)
}
