package newshttp

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"

	"news-intel/internal/domain"
	"news-intel/internal/usecase"
)

// ArticleRequest is the submission payload for a single article.
type ArticleRequest struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// BatchRequest submits multiple articles for sequential processing.
type BatchRequest struct {
	Articles []ArticleRequest `json:"articles"`
}

// QueryRequest is the read-path query payload.
type QueryRequest struct {
	Query      string     `json:"query"`
	MaxResults int        `json:"max_results,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
}

// EntityResponse mirrors a stored entity on the wire.
type EntityResponse struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// ImpactResponse mirrors a stored stock impact on the wire.
type ImpactResponse struct {
	Symbol     string  `json:"symbol"`
	Confidence float64 `json:"confidence"`
	Kind       string  `json:"kind"`
	Reasoning  string  `json:"reasoning"`
}

// ProcessingResponse is the pipeline outcome for one article.
type ProcessingResponse struct {
	ArticleID    string           `json:"article_id"`
	IsDuplicate  bool             `json:"is_duplicate"`
	DuplicateOf  string           `json:"duplicate_of,omitempty"`
	Entities     []EntityResponse `json:"entities"`
	StockImpacts []ImpactResponse `json:"stock_impacts"`
	Metadata     map[string]any   `json:"metadata"`
	Error        string           `json:"error,omitempty"`
}

// QueryResultResponse is one ranked article in a query response.
type QueryResultResponse struct {
	ArticleID    string           `json:"article_id"`
	Title        string           `json:"title"`
	Source       string           `json:"source"`
	URL          string           `json:"url,omitempty"`
	PublishedAt  time.Time        `json:"published_at"`
	Entities     []EntityResponse `json:"entities"`
	StockImpacts []ImpactResponse `json:"stock_impacts"`
}

// QueryResponse is the read-path response envelope.
type QueryResponse struct {
	Query        string                `json:"query"`
	Results      []QueryResultResponse `json:"results"`
	TotalResults int                   `json:"total_results"`
	ElapsedMs    int64                 `json:"elapsed_ms"`
}

// ReadyCheck reports whether downstream dependencies are reachable.
type ReadyCheck func(ctx echo.Context) error

type Handler struct {
	processUsecase usecase.ProcessArticleUsecase
	queryUsecase   usecase.QueryArticlesUsecase
	repo           domain.ArticleRepository
	index          domain.SimilarityIndex
	sanitizer      *bluemonday.Policy
	ready          ReadyCheck
}

func NewHandler(
	processUsecase usecase.ProcessArticleUsecase,
	queryUsecase usecase.QueryArticlesUsecase,
	repo domain.ArticleRepository,
	index domain.SimilarityIndex,
	ready ReadyCheck,
) *Handler {
	return &Handler{
		processUsecase: processUsecase,
		queryUsecase:   queryUsecase,
		repo:           repo,
		index:          index,
		sanitizer:      bluemonday.StrictPolicy(),
		ready:          ready,
	}
}

// RegisterRoutes attaches all endpoints to the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/articles", h.ProcessArticle)
	e.POST("/v1/articles/batch", h.ProcessBatch)
	e.GET("/v1/articles/:id", h.GetArticle)
	e.DELETE("/v1/articles/:id", h.DeleteArticle)
	e.POST("/v1/query", h.QueryArticles)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

// ProcessArticle runs the full pipeline for one article.
// (POST /v1/articles)
func (h *Handler) ProcessArticle(ctx echo.Context) error {
	var req ArticleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	state, err := h.processUsecase.Process(ctx.Request().Context(), h.toArticle(req))
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": vErr.Error(),
				"field": vErr.Field,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, toProcessingResponse(state))
}

// ProcessBatch runs the pipeline for each article in submission order.
// (POST /v1/articles/batch)
func (h *Handler) ProcessBatch(ctx echo.Context) error {
	var req BatchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if len(req.Articles) == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "articles must not be empty"})
	}

	articles := make([]domain.Article, len(req.Articles))
	for i, a := range req.Articles {
		articles[i] = h.toArticle(a)
	}

	states, err := h.processUsecase.ProcessBatch(ctx.Request().Context(), articles)
	responses := make([]ProcessingResponse, 0, len(states))
	for _, state := range states {
		responses = append(responses, toProcessingResponse(state))
	}
	if err != nil {
		var vErr *domain.ValidationError
		status := http.StatusInternalServerError
		if errors.As(err, &vErr) {
			status = http.StatusBadRequest
		}
		// Partial results are still returned so completed work is visible.
		return ctx.JSON(status, map[string]any{
			"error":   err.Error(),
			"results": responses,
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{"results": responses})
}

// GetArticle returns the stored article with entities and impacts.
// (GET /v1/articles/:id)
func (h *Handler) GetArticle(ctx echo.Context) error {
	id := ctx.Param("id")
	processed, err := h.repo.GetProcessed(ctx.Request().Context(), id)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if processed == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "article not found"})
	}
	return ctx.JSON(http.StatusOK, toQueryResult(*processed))
}

// DeleteArticle removes the article from the store and the index.
// (DELETE /v1/articles/:id)
func (h *Handler) DeleteArticle(ctx echo.Context) error {
	id := ctx.Param("id")
	reqCtx := ctx.Request().Context()

	if err := h.index.Delete(reqCtx, id); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if err := h.repo.Delete(reqCtx, id); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"article_id": id, "status": "deleted"})
}

// QueryArticles answers a natural-language query over stored articles.
// (POST /v1/query)
func (h *Handler) QueryArticles(ctx echo.Context) error {
	var req QueryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	output, err := h.queryUsecase.Execute(ctx.Request().Context(), usecase.QueryArticlesInput{
		Query:      req.Query,
		MaxResults: req.MaxResults,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuery) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	results := make([]QueryResultResponse, 0, len(output.Results))
	for _, r := range output.Results {
		results = append(results, toQueryResult(r))
	}

	return ctx.JSON(http.StatusOK, QueryResponse{
		Query:        output.Query,
		Results:      results,
		TotalResults: output.TotalResults,
		ElapsedMs:    output.Elapsed.Milliseconds(),
	})
}

// Healthz is a liveness probe.
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is a readiness probe checking downstream dependencies.
func (h *Handler) Readyz(ctx echo.Context) error {
	if h.ready != nil {
		if err := h.ready(ctx); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) toArticle(req ArticleRequest) domain.Article {
	return domain.Article{
		ID:          req.ArticleID,
		Title:       h.sanitizer.Sanitize(req.Title),
		Body:        h.sanitizer.Sanitize(req.Body),
		Source:      req.Source,
		URL:         req.URL,
		PublishedAt: req.PublishedAt,
	}
}

func toProcessingResponse(state *domain.ProcessingState) ProcessingResponse {
	entities := make([]EntityResponse, 0, len(state.Entities))
	for _, e := range state.Entities {
		entities = append(entities, EntityResponse{
			Text:       e.Text,
			Type:       string(e.Type),
			Confidence: e.Confidence,
		})
	}
	impacts := make([]ImpactResponse, 0, len(state.StockImpacts))
	for _, i := range state.StockImpacts {
		impacts = append(impacts, ImpactResponse{
			Symbol:     i.Symbol,
			Confidence: i.Confidence,
			Kind:       string(i.Kind),
			Reasoning:  i.Reasoning,
		})
	}
	return ProcessingResponse{
		ArticleID:    state.Article.ID,
		IsDuplicate:  state.IsDuplicate,
		DuplicateOf:  state.DuplicateOf,
		Entities:     entities,
		StockImpacts: impacts,
		Metadata:     state.Metadata,
		Error:        state.Error,
	}
}

func toQueryResult(p domain.ProcessedArticle) QueryResultResponse {
	entities := make([]EntityResponse, 0, len(p.Entities))
	for _, e := range p.Entities {
		entities = append(entities, EntityResponse{
			Text:       e.Text,
			Type:       string(e.Type),
			Confidence: e.Confidence,
		})
	}
	impacts := make([]ImpactResponse, 0, len(p.StockImpacts))
	for _, i := range p.StockImpacts {
		impacts = append(impacts, ImpactResponse{
			Symbol:     i.Symbol,
			Confidence: i.Confidence,
			Kind:       string(i.Kind),
			Reasoning:  i.Reasoning,
		})
	}
	return QueryResultResponse{
		ArticleID:    p.Article.ID,
		Title:        p.Article.Title,
		Source:       p.Article.Source,
		URL:          p.Article.URL,
		PublishedAt:  p.Article.PublishedAt,
		Entities:     entities,
		StockImpacts: impacts,
	}
}
