package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"news-intel/internal/domain"
)

type articleRepository struct {
	pool *pgxpool.Pool
}

// NewArticleRepository creates a pgx-backed ArticleRepository.
func NewArticleRepository(pool *pgxpool.Pool) domain.ArticleRepository {
	return &articleRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *articleRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *articleRepository) InsertArticle(ctx context.Context, rec *domain.ArticleRecord) error {
	query := `
		INSERT INTO articles (article_id, title, body, source, published_at, url, is_duplicate, duplicate_of, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	a := rec.Article
	var duplicateOf *string
	if rec.DuplicateOf != "" {
		duplicateOf = &rec.DuplicateOf
	}
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		a.ID, a.Title, a.Body, a.Source, a.PublishedAt, a.URL,
		rec.IsDuplicate, duplicateOf, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

func (r *articleRepository) BulkInsertEntities(ctx context.Context, articleID string, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]interface{}, len(entities))
	for i, e := range entities {
		rows[i] = []interface{}{
			uuid.New(),
			articleID,
			e.Text,
			string(e.Type),
			e.Confidence,
			now,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"extracted_entities"},
		[]string{"id", "article_id", "entity_text", "entity_type", "confidence", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert entities: %w", err)
	}
	return nil
}

func (r *articleRepository) BulkInsertImpacts(ctx context.Context, articleID string, impacts []domain.StockImpact) error {
	if len(impacts) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]interface{}, len(impacts))
	for i, imp := range impacts {
		rows[i] = []interface{}{
			uuid.New(),
			articleID,
			imp.Symbol,
			imp.Confidence,
			string(imp.Kind),
			imp.Reasoning,
			now,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"stock_impacts"},
		[]string{"id", "article_id", "stock_symbol", "confidence", "impact_kind", "reasoning", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert impacts: %w", err)
	}
	return nil
}

func (r *articleRepository) GetProcessed(ctx context.Context, articleID string) (*domain.ProcessedArticle, error) {
	articles, err := r.List(ctx, domain.ArticleFilter{IDs: []string{articleID}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

func (r *articleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.ProcessedArticle, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT article_id, title, body, source, published_at, url, is_duplicate, duplicate_of
		FROM articles
		WHERE 1=1
	`)

	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.IDs) > 0 {
		query.WriteString(" AND article_id = ANY(" + arg(filter.IDs) + ")")
	}
	if filter.ExcludeDuplicates {
		query.WriteString(" AND is_duplicate = FALSE")
	}
	if filter.DateFrom != nil {
		query.WriteString(" AND published_at >= " + arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query.WriteString(" AND published_at <= " + arg(*filter.DateTo))
	}
	query.WriteString(" ORDER BY published_at DESC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT " + arg(filter.Limit))
	}

	rows, err := r.getExecutor(ctx).Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.ProcessedArticle
	var ids []string
	for rows.Next() {
		var pa domain.ProcessedArticle
		var url, duplicateOf *string
		if err := rows.Scan(
			&pa.Article.ID, &pa.Article.Title, &pa.Article.Body, &pa.Article.Source,
			&pa.Article.PublishedAt, &url, &pa.IsDuplicate, &duplicateOf,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		if url != nil {
			pa.Article.URL = *url
		}
		if duplicateOf != nil {
			pa.DuplicateOf = *duplicateOf
		}
		articles = append(articles, pa)
		ids = append(ids, pa.Article.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	if err := r.attachEntities(ctx, ids, articles); err != nil {
		return nil, err
	}
	if err := r.attachImpacts(ctx, ids, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *articleRepository) attachEntities(ctx context.Context, ids []string, articles []domain.ProcessedArticle) error {
	query := `
		SELECT article_id, entity_text, entity_type, confidence
		FROM extracted_entities
		WHERE article_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	byID := indexArticles(articles)
	for rows.Next() {
		var articleID, entityType string
		var e domain.Entity
		if err := rows.Scan(&articleID, &e.Text, &entityType, &e.Confidence); err != nil {
			return fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Type = domain.EntityType(entityType)
		if i, ok := byID[articleID]; ok {
			articles[i].Entities = append(articles[i].Entities, e)
		}
	}
	return rows.Err()
}

func (r *articleRepository) attachImpacts(ctx context.Context, ids []string, articles []domain.ProcessedArticle) error {
	query := `
		SELECT article_id, stock_symbol, confidence, impact_kind, reasoning
		FROM stock_impacts
		WHERE article_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query impacts: %w", err)
	}
	defer rows.Close()

	byID := indexArticles(articles)
	for rows.Next() {
		var articleID, kind string
		var reasoning *string
		var imp domain.StockImpact
		if err := rows.Scan(&articleID, &imp.Symbol, &imp.Confidence, &kind, &reasoning); err != nil {
			return fmt.Errorf("failed to scan impact: %w", err)
		}
		imp.Kind = domain.ImpactKind(kind)
		if reasoning != nil {
			imp.Reasoning = *reasoning
		}
		if i, ok := byID[articleID]; ok {
			articles[i].StockImpacts = append(articles[i].StockImpacts, imp)
		}
	}
	return rows.Err()
}

func (r *articleRepository) Delete(ctx context.Context, articleID string) error {
	exec := r.getExecutor(ctx)
	if _, err := exec.Exec(ctx, `DELETE FROM extracted_entities WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete entities: %w", err)
	}
	if _, err := exec.Exec(ctx, `DELETE FROM stock_impacts WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete impacts: %w", err)
	}
	if _, err := exec.Exec(ctx, `DELETE FROM articles WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

func indexArticles(articles []domain.ProcessedArticle) map[string]int {
	byID := make(map[string]int, len(articles))
	for i, a := range articles {
		byID[a.Article.ID] = i
	}
	return byID
}
