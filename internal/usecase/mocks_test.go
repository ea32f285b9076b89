package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"news-intel/internal/domain"

	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type MockSimilarityIndex struct {
	mock.Mock
}

func (m *MockSimilarityIndex) IndexArticle(ctx context.Context, article domain.Article, entityTexts []string) error {
	args := m.Called(ctx, article, entityTexts)
	return args.Error(0)
}

func (m *MockSimilarityIndex) NearestNeighbors(ctx context.Context, queryText string, k int) ([]domain.NeighborHit, error) {
	args := m.Called(ctx, queryText, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NeighborHit), args.Error(1)
}

func (m *MockSimilarityIndex) SearchByEntity(ctx context.Context, entityText string, k int) ([]string, error) {
	args := m.Called(ctx, entityText, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSimilarityIndex) Delete(ctx context.Context, articleID string) error {
	args := m.Called(ctx, articleID)
	return args.Error(0)
}

type MockEntityTagger struct {
	mock.Mock
}

func (m *MockEntityTagger) Tag(ctx context.Context, text string) ([]domain.TaggedSpan, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaggedSpan), args.Error(1)
}

type MockEntityExtractor struct {
	mock.Mock
}

func (m *MockEntityExtractor) Extract(ctx context.Context, title, body string) (domain.EntityLists, error) {
	args := m.Called(ctx, title, body)
	return args.Get(0).(domain.EntityLists), args.Error(1)
}

type MockImpactAnalyst struct {
	mock.Mock
}

func (m *MockImpactAnalyst) Infer(ctx context.Context, title, body string, entities domain.EntityLists) ([]domain.StockImpact, error) {
	args := m.Called(ctx, title, body, entities)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StockImpact), args.Error(1)
}

type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) InsertArticle(ctx context.Context, rec *domain.ArticleRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockArticleRepository) BulkInsertEntities(ctx context.Context, articleID string, entities []domain.Entity) error {
	args := m.Called(ctx, articleID, entities)
	return args.Error(0)
}

func (m *MockArticleRepository) BulkInsertImpacts(ctx context.Context, articleID string, impacts []domain.StockImpact) error {
	args := m.Called(ctx, articleID, impacts)
	return args.Error(0)
}

func (m *MockArticleRepository) GetProcessed(ctx context.Context, articleID string) (*domain.ProcessedArticle, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessedArticle), args.Error(1)
}

func (m *MockArticleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.ProcessedArticle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessedArticle), args.Error(1)
}

func (m *MockArticleRepository) Delete(ctx context.Context, articleID string) error {
	args := m.Called(ctx, articleID)
	return args.Error(0)
}

type MockTransactionManager struct {
	mock.Mock

	// FailWith aborts the transaction without running fn.
	FailWith error
}

func (m *MockTransactionManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	// Directly execute the function.
	return fn(ctx)
}
