package newshttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"news-intel/internal/adapter/newshttp"
	"news-intel/internal/domain"
	"news-intel/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessUsecase struct {
	lastArticle domain.Article
	state       *domain.ProcessingState
	states      []*domain.ProcessingState
	err         error
}

func (s *stubProcessUsecase) Process(ctx context.Context, article domain.Article) (*domain.ProcessingState, error) {
	s.lastArticle = article
	if s.err != nil {
		return nil, s.err
	}
	if s.state != nil {
		return s.state, nil
	}
	return domain.NewProcessingState(article), nil
}

func (s *stubProcessUsecase) ProcessBatch(ctx context.Context, articles []domain.Article) ([]*domain.ProcessingState, error) {
	return s.states, s.err
}

type stubQueryUsecase struct {
	output *usecase.QueryArticlesOutput
	err    error
}

func (s *stubQueryUsecase) Execute(ctx context.Context, input usecase.QueryArticlesInput) (*usecase.QueryArticlesOutput, error) {
	return s.output, s.err
}

type stubRepo struct {
	domain.ArticleRepository
	processed *domain.ProcessedArticle
	deleted   []string
}

func (s *stubRepo) GetProcessed(ctx context.Context, articleID string) (*domain.ProcessedArticle, error) {
	return s.processed, nil
}

func (s *stubRepo) Delete(ctx context.Context, articleID string) error {
	s.deleted = append(s.deleted, articleID)
	return nil
}

type stubIndex struct {
	domain.SimilarityIndex
	deleted []string
}

func (s *stubIndex) Delete(ctx context.Context, articleID string) error {
	s.deleted = append(s.deleted, articleID)
	return nil
}

func postJSON(t *testing.T, e *echo.Echo, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newTestHandler(process *stubProcessUsecase, query *stubQueryUsecase, repo *stubRepo, index *stubIndex) *echo.Echo {
	e := echo.New()
	h := newshttp.NewHandler(process, query, repo, index, nil)
	h.RegisterRoutes(e)
	return e
}

func TestHandler_ProcessArticle_SanitizesBody(t *testing.T) {
	process := &stubProcessUsecase{}
	e := newTestHandler(process, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/articles", newshttp.ArticleRequest{
		ArticleID:   "art-1",
		Title:       "HDFC Bank <b>profit</b>",
		Body:        `Quarterly numbers.<script>alert("x")</script>`,
		Source:      "wire",
		PublishedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HDFC Bank profit", process.lastArticle.Title)
	assert.NotContains(t, process.lastArticle.Body, "<script>")
	assert.Contains(t, process.lastArticle.Body, "Quarterly numbers.")
}

func TestHandler_ProcessArticle_ValidationError(t *testing.T) {
	process := &stubProcessUsecase{err: &domain.ValidationError{Field: "title", Reason: "must not be empty"}}
	e := newTestHandler(process, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/articles", newshttp.ArticleRequest{
		ArticleID:   "art-1",
		Body:        "body",
		Source:      "wire",
		PublishedAt: time.Now(),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "title", resp["field"])
}

func TestHandler_ProcessArticle_PipelineErrorInBody(t *testing.T) {
	state := domain.NewProcessingState(domain.Article{ID: "art-1"})
	state.Fail(errors.New("index unavailable"))
	process := &stubProcessUsecase{state: state}
	e := newTestHandler(process, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/articles", newshttp.ArticleRequest{
		ArticleID:   "art-1",
		Title:       "t",
		Body:        "b",
		Source:      "wire",
		PublishedAt: time.Now(),
	})

	// Failed pipelines still return the state; the error rides inside it.
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp newshttp.ProcessingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "index unavailable", resp.Error)
}

func TestHandler_ProcessBatch_EmptyRejected(t *testing.T) {
	e := newTestHandler(&stubProcessUsecase{}, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/articles/batch", newshttp.BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ProcessBatch_PartialResultsOnValidationError(t *testing.T) {
	good := domain.NewProcessingState(domain.Article{ID: "art-1"})
	process := &stubProcessUsecase{
		states: []*domain.ProcessingState{good},
		err:    &domain.ValidationError{Field: "body", Reason: "must not be empty"},
	}
	e := newTestHandler(process, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/articles/batch", newshttp.BatchRequest{
		Articles: []newshttp.ArticleRequest{
			{ArticleID: "art-1", Title: "t", Body: "b", Source: "wire", PublishedAt: time.Now()},
			{ArticleID: "art-2", Title: "t", Source: "wire", PublishedAt: time.Now()},
		},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string                        `json:"error"`
		Results []newshttp.ProcessingResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "art-1", resp.Results[0].ArticleID)
}

func TestHandler_QueryArticles_Success(t *testing.T) {
	query := &stubQueryUsecase{
		output: &usecase.QueryArticlesOutput{
			Query: "bank results",
			Results: []domain.ProcessedArticle{
				{
					Article: domain.Article{ID: "art-1", Title: "HDFC results", Source: "wire"},
					StockImpacts: []domain.StockImpact{
						{Symbol: "HDFCBANK", Confidence: 1.0, Kind: domain.ImpactDirect, Reasoning: "named"},
					},
				},
			},
			TotalResults: 1,
			Elapsed:      12 * time.Millisecond,
		},
	}
	e := newTestHandler(&stubProcessUsecase{}, query, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/query", newshttp.QueryRequest{Query: "bank results"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp newshttp.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalResults)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "HDFCBANK", resp.Results[0].StockImpacts[0].Symbol)
}

func TestHandler_QueryArticles_EmptyQuery(t *testing.T) {
	query := &stubQueryUsecase{err: usecase.ErrEmptyQuery}
	e := newTestHandler(&stubProcessUsecase{}, query, &stubRepo{}, &stubIndex{})

	rec := postJSON(t, e, "/v1/query", newshttp.QueryRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetArticle_NotFound(t *testing.T) {
	e := newTestHandler(&stubProcessUsecase{}, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	req := httptest.NewRequest(http.MethodGet, "/v1/articles/missing", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_DeleteArticle_RemovesFromIndexAndStore(t *testing.T) {
	repo := &stubRepo{}
	index := &stubIndex{}
	e := newTestHandler(&stubProcessUsecase{}, &stubQueryUsecase{}, repo, index)

	req := httptest.NewRequest(http.MethodDelete, "/v1/articles/art-9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"art-9"}, index.deleted)
	assert.Equal(t, []string{"art-9"}, repo.deleted)
}

func TestHandler_Healthz(t *testing.T) {
	e := newTestHandler(&stubProcessUsecase{}, &stubQueryUsecase{}, &stubRepo{}, &stubIndex{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
