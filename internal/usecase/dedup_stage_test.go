package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"news-intel/internal/domain"
	"news-intel/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newsArticle(id string) domain.Article {
	return domain.Article{
		ID:          id,
		Title:       "HDFC Bank reports profit",
		Body:        "The bank beat estimates after RBI approves its expansion.",
		Source:      "MoneyWire",
		PublishedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestDedupStage_MarksDuplicateAboveThreshold(t *testing.T) {
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	article := newsArticle("N2")
	index.On("NearestNeighbors", mock.Anything, article.FullText(), 5).Return([]domain.NeighborHit{
		{ArticleID: "N1", Score: 0.93},
		{ArticleID: "N0", Score: 0.6},
	}, nil)

	state := domain.NewProcessingState(article)
	stage.Run(context.Background(), state)

	assert.True(t, state.IsDuplicate)
	assert.Equal(t, "N1", state.DuplicateOf)
	assert.Equal(t, 0.93, state.Metadata[domain.MetaDuplicateSimilarity])
	assert.False(t, state.Failed())
}

func TestDedupStage_BelowThresholdIsUnique(t *testing.T) {
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	article := newsArticle("N2")
	index.On("NearestNeighbors", mock.Anything, mock.Anything, 5).Return([]domain.NeighborHit{
		{ArticleID: "N1", Score: 0.84},
	}, nil)

	state := domain.NewProcessingState(article)
	stage.Run(context.Background(), state)

	assert.False(t, state.IsDuplicate)
	assert.Empty(t, state.DuplicateOf)
}

func TestDedupStage_ExcludesSelfMatch(t *testing.T) {
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	article := newsArticle("N1")
	index.On("NearestNeighbors", mock.Anything, mock.Anything, 5).Return([]domain.NeighborHit{
		{ArticleID: "N1", Score: 1.0},
	}, nil)

	state := domain.NewProcessingState(article)
	stage.Run(context.Background(), state)

	assert.False(t, state.IsDuplicate)
}

func TestDedupStage_TiePicksFirstReturnedHit(t *testing.T) {
	// The index contract orders equal scores by ascending article ID, so
	// the first hit of a tie is the lowest ID.
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	article := newsArticle("N9")
	index.On("NearestNeighbors", mock.Anything, mock.Anything, 5).Return([]domain.NeighborHit{
		{ArticleID: "N3", Score: 0.9},
		{ArticleID: "N7", Score: 0.9},
	}, nil)

	state := domain.NewProcessingState(article)
	stage.Run(context.Background(), state)

	assert.True(t, state.IsDuplicate)
	assert.Equal(t, "N3", state.DuplicateOf)
}

func TestDedupStage_IndexErrorFailsOpen(t *testing.T) {
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	index.On("NearestNeighbors", mock.Anything, mock.Anything, 5).
		Return(nil, errors.New("index unreachable"))

	state := domain.NewProcessingState(newsArticle("N2"))
	stage.Run(context.Background(), state)

	// Treated as non-duplicate, but the failure is visible to the caller.
	assert.False(t, state.IsDuplicate)
	assert.True(t, state.Failed())
	assert.Contains(t, state.Error, "index unreachable")
}

func TestDedupStage_PassThroughOnPriorError(t *testing.T) {
	index := new(MockSimilarityIndex)
	stage := usecase.NewDedupStage(index, 0.85, testLogger())

	state := domain.NewProcessingState(newsArticle("N2"))
	state.Fail(errors.New("earlier failure"))
	stage.Run(context.Background(), state)

	index.AssertNotCalled(t, "NearestNeighbors", mock.Anything, mock.Anything, mock.Anything)
}
