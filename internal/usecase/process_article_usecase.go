package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"news-intel/internal/domain"
	"news-intel/internal/infra/logger"
)

// ProcessArticleUsecase runs an article through the fixed pipeline:
// deduplication -> entity extraction -> impact analysis -> storage.
type ProcessArticleUsecase interface {
	// Process validates the article, threads a fresh state through all
	// four stages and returns the final state unconditionally; callers
	// inspect state.Error. The returned error is non-nil only for
	// validation failures, which are rejected before any state exists.
	Process(ctx context.Context, article domain.Article) (*domain.ProcessingState, error)

	// ProcessBatch processes articles one at a time in submission order.
	// Each article is fully stored and indexed before the next one is
	// deduplicated, so intra-batch duplicates are caught.
	ProcessBatch(ctx context.Context, articles []domain.Article) ([]*domain.ProcessingState, error)
}

type processArticleUsecase struct {
	stages []Stage
	logger *slog.Logger
}

// NewProcessArticleUsecase wires the four stages in their fixed order. No
// stage is skipped structurally; each stage's own logic decides whether
// to perform work.
func NewProcessArticleUsecase(
	dedup *DedupStage,
	extract *ExtractStage,
	impact *ImpactStage,
	storage *StorageStage,
	log *slog.Logger,
) ProcessArticleUsecase {
	return &processArticleUsecase{
		stages: []Stage{dedup, extract, impact, storage},
		logger: log,
	}
}

func (u *processArticleUsecase) Process(ctx context.Context, article domain.Article) (*domain.ProcessingState, error) {
	if err := article.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.WithArticleID(ctx, article.ID)
	u.logger.InfoContext(ctx, "pipeline_started", slog.String("article_id", article.ID))

	state := domain.NewProcessingState(article)
	for _, stage := range u.stages {
		stageCtx := logger.WithProcessingStage(ctx, stage.Name())
		stage.Run(stageCtx, state)
	}

	if state.Failed() {
		u.logger.ErrorContext(ctx, "pipeline_completed_with_error",
			slog.String("article_id", article.ID),
			slog.String("error", state.Error),
		)
	} else {
		u.logger.InfoContext(ctx, "pipeline_completed", slog.String("article_id", article.ID))
	}

	return state, nil
}

func (u *processArticleUsecase) ProcessBatch(ctx context.Context, articles []domain.Article) ([]*domain.ProcessingState, error) {
	ctx = logger.WithBatchID(ctx, uuid.NewString())
	u.logger.InfoContext(ctx, "batch_started", slog.Int("size", len(articles)))

	states := make([]*domain.ProcessingState, 0, len(articles))
	for i, article := range articles {
		state, err := u.Process(ctx, article)
		if err != nil {
			return states, fmt.Errorf("article %d (%s) rejected: %w", i, article.ID, err)
		}
		states = append(states, state)
	}
	return states, nil
}
