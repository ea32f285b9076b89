package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"news-intel/internal/domain"
)

const (
	defaultMaxResults = 10
	maxMaxResults     = 100
)

// ErrEmptyQuery rejects a query request with no query text.
var ErrEmptyQuery = errors.New("query is empty")

// QueryArticlesInput is a natural-language query over stored articles.
type QueryArticlesInput struct {
	Query      string
	MaxResults int
	DateFrom   *time.Time
	DateTo     *time.Time
}

// QueryArticlesOutput carries the ranked results and timing.
type QueryArticlesOutput struct {
	Query        string
	Results      []domain.ProcessedArticle
	TotalResults int
	Elapsed      time.Duration
}

// QueryArticlesUsecase is the read path: semantic retrieval over the
// similarity index hydrated from the persistence store. Duplicates are
// never returned.
type QueryArticlesUsecase interface {
	Execute(ctx context.Context, input QueryArticlesInput) (*QueryArticlesOutput, error)
}

type queryArticlesUsecase struct {
	index   domain.SimilarityIndex
	repo    domain.ArticleRepository
	lexicon *domain.Lexicon
	cache   *expirable.LRU[string, []domain.ProcessedArticle]
	logger  *slog.Logger
}

// QueryOption configures optional usecase behavior.
type QueryOption func(*queryArticlesUsecase)

// WithQueryCache enables an in-process TTL cache of query results.
func WithQueryCache(size int, ttl time.Duration) QueryOption {
	return func(u *queryArticlesUsecase) {
		if size > 0 {
			u.cache = expirable.NewLRU[string, []domain.ProcessedArticle](size, nil, ttl)
		}
	}
}

func NewQueryArticlesUsecase(
	index domain.SimilarityIndex,
	repo domain.ArticleRepository,
	lexicon *domain.Lexicon,
	log *slog.Logger,
	opts ...QueryOption,
) QueryArticlesUsecase {
	u := &queryArticlesUsecase{
		index:   index,
		repo:    repo,
		lexicon: lexicon,
		logger:  log,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *queryArticlesUsecase) Execute(ctx context.Context, input QueryArticlesInput) (*QueryArticlesOutput, error) {
	if input.Query == "" {
		return nil, ErrEmptyQuery
	}
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxMaxResults {
		maxResults = maxMaxResults
	}

	start := time.Now()
	key := cacheKey(input, maxResults)

	if u.cache != nil {
		if results, ok := u.cache.Get(key); ok {
			return &QueryArticlesOutput{
				Query:        input.Query,
				Results:      results,
				TotalResults: len(results),
				Elapsed:      time.Since(start),
			}, nil
		}
	}

	// Fetch extra candidates: duplicates and date-filtered rows are
	// dropped during hydration.
	hits, err := u.index.NearestNeighbors(ctx, input.Query, maxResults*2)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	hits = u.expandEntityHits(ctx, input.Query, hits, maxResults)

	results := []domain.ProcessedArticle{}
	if len(hits) > 0 {
		ids := make([]string, 0, len(hits))
		for _, hit := range hits {
			ids = append(ids, hit.ArticleID)
		}

		articles, err := u.repo.List(ctx, domain.ArticleFilter{
			IDs:               ids,
			DateFrom:          input.DateFrom,
			DateTo:            input.DateTo,
			ExcludeDuplicates: true,
			Limit:             maxResults,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load articles: %w", err)
		}

		results = rankByHits(articles, hits, maxResults)
	}

	if u.cache != nil {
		u.cache.Add(key, results)
	}

	u.logger.InfoContext(ctx, "query_executed",
		slog.String("query", input.Query),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &QueryArticlesOutput{
		Query:        input.Query,
		Results:      results,
		TotalResults: len(results),
		Elapsed:      time.Since(start),
	}, nil
}

// expandEntityHits is the query-understanding step. When the query names
// a known company, regulator or sector, articles whose indexed entity
// texts are close to that name are appended as extra candidates behind
// the full-text hits. Entity lookup failures degrade to the full-text
// hits alone.
func (u *queryArticlesUsecase) expandEntityHits(ctx context.Context, query string, hits []domain.NeighborHit, k int) []domain.NeighborHit {
	if u.lexicon == nil {
		return hits
	}
	entity, ok := u.lexicon.MatchEntity(query)
	if !ok {
		return hits
	}

	ids, err := u.index.SearchByEntity(ctx, entity, k)
	if err != nil {
		u.logger.WarnContext(ctx, "entity_search_failed",
			slog.String("entity", entity),
			slog.String("error", err.Error()),
		)
		return hits
	}

	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		seen[hit.ArticleID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			hits = append(hits, domain.NeighborHit{ArticleID: id})
			seen[id] = true
		}
	}

	u.logger.InfoContext(ctx, "query_entity_recognized",
		slog.String("entity", entity),
		slog.Int("entity_hits", len(ids)),
	)
	return hits
}

// rankByHits reorders repository rows to the index's similarity order.
func rankByHits(articles []domain.ProcessedArticle, hits []domain.NeighborHit, limit int) []domain.ProcessedArticle {
	byID := make(map[string]domain.ProcessedArticle, len(articles))
	for _, a := range articles {
		byID[a.Article.ID] = a
	}

	ranked := make([]domain.ProcessedArticle, 0, limit)
	for _, hit := range hits {
		if a, ok := byID[hit.ArticleID]; ok {
			ranked = append(ranked, a)
			if len(ranked) == limit {
				break
			}
		}
	}
	return ranked
}

func cacheKey(input QueryArticlesInput, maxResults int) string {
	from, to := "", ""
	if input.DateFrom != nil {
		from = input.DateFrom.Format(time.RFC3339)
	}
	if input.DateTo != nil {
		to = input.DateTo.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%d|%s|%s", input.Query, maxResults, from, to)
}
