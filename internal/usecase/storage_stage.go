package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"news-intel/internal/domain"
)

// StorageStage persists the processing outcome. It always executes,
// duplicates and failed states included: the article row itself is always
// written. Entity and impact rows are written only for non-duplicates,
// inside the same transaction as the article row; the similarity index is
// updated only after that transaction commits.
type StorageStage struct {
	repo   domain.ArticleRepository
	tx     domain.TransactionManager
	index  domain.SimilarityIndex
	logger *slog.Logger
	now    func() time.Time
}

func NewStorageStage(
	repo domain.ArticleRepository,
	tx domain.TransactionManager,
	index domain.SimilarityIndex,
	logger *slog.Logger,
) *StorageStage {
	return &StorageStage{
		repo:   repo,
		tx:     tx,
		index:  index,
		logger: logger,
		now:    time.Now,
	}
}

func (s *StorageStage) Name() string { return "storage" }

func (s *StorageStage) Run(ctx context.Context, state *domain.ProcessingState) {
	article := state.Article

	now := s.now()
	rec := &domain.ArticleRecord{
		Article:     article,
		IsDuplicate: state.IsDuplicate,
		DuplicateOf: state.DuplicateOf,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.InsertArticle(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
		if state.IsDuplicate {
			return nil
		}
		if err := s.repo.BulkInsertEntities(ctx, article.ID, state.Entities); err != nil {
			return fmt.Errorf("failed to insert entities: %w", err)
		}
		if err := s.repo.BulkInsertImpacts(ctx, article.ID, state.StockImpacts); err != nil {
			return fmt.Errorf("failed to insert impacts: %w", err)
		}
		return nil
	})
	if err != nil {
		state.Fail(err)
		state.Metadata[domain.MetaStored] = false
		s.logger.ErrorContext(ctx, "storage_failed",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if !state.IsDuplicate {
		entityTexts := make([]string, 0, len(state.Entities))
		for _, e := range state.Entities {
			entityTexts = append(entityTexts, e.Text)
		}
		if err := s.index.IndexArticle(ctx, article, entityTexts); err != nil {
			// The rows are committed; only the index write is lost.
			state.Fail(fmt.Errorf("failed to index article: %w", err))
			state.Metadata[domain.MetaStored] = false
			s.logger.ErrorContext(ctx, "index_write_failed",
				slog.String("article_id", article.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	state.Metadata[domain.MetaStored] = true
	s.logger.InfoContext(ctx, "article_stored",
		slog.String("article_id", article.ID),
		slog.Bool("is_duplicate", state.IsDuplicate),
	)
}
