package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"news-intel/internal/domain"
)

// dedupCandidateLimit is how many neighbors are fetched per check. The
// index orders ties by ascending article ID, so the best match is
// deterministic even among equally-similar candidates.
const dedupCandidateLimit = 5

// DedupStage queries the similarity index for near neighbors of the
// article's combined text and marks the article a duplicate when the best
// hit meets the configured threshold.
type DedupStage struct {
	index     domain.SimilarityIndex
	threshold float64
	logger    *slog.Logger
}

func NewDedupStage(index domain.SimilarityIndex, threshold float64, logger *slog.Logger) *DedupStage {
	return &DedupStage{
		index:     index,
		threshold: threshold,
		logger:    logger,
	}
}

func (s *DedupStage) Name() string { return "deduplication" }

func (s *DedupStage) Run(ctx context.Context, state *domain.ProcessingState) {
	if state.Failed() {
		return
	}

	article := state.Article
	hits, err := s.index.NearestNeighbors(ctx, article.FullText(), dedupCandidateLimit)
	if err != nil {
		// Fail-open: the article flows on as a non-duplicate, but the
		// failure stays visible to the caller.
		state.Fail(fmt.Errorf("deduplication failed: %w", err))
		s.logger.ErrorContext(ctx, "dedup_index_query_failed",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	best, ok := s.bestMatch(article.ID, hits)
	if !ok {
		s.logger.InfoContext(ctx, "article_unique", slog.String("article_id", article.ID))
		return
	}

	state.IsDuplicate = true
	state.DuplicateOf = best.ArticleID
	state.Metadata[domain.MetaDuplicateSimilarity] = best.Score

	s.logger.InfoContext(ctx, "article_duplicate",
		slog.String("article_id", article.ID),
		slog.String("duplicate_of", best.ArticleID),
		slog.Float64("similarity", best.Score),
	)
}

// bestMatch filters hits to candidates at or above the threshold,
// excluding the article itself, and picks the highest-similarity match.
// The index returns equal scores ordered by ascending article ID, and the
// first of a tie wins, so tie-breaking is lowest-ID deterministic.
func (s *DedupStage) bestMatch(selfID string, hits []domain.NeighborHit) (domain.NeighborHit, bool) {
	var best domain.NeighborHit
	found := false
	for _, hit := range hits {
		if hit.ArticleID == selfID || hit.Score < s.threshold {
			continue
		}
		if !found || hit.Score > best.Score {
			best = hit
			found = true
		}
	}
	return best, found
}
