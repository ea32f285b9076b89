package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	// Business context keys, OpenTelemetry semantic convention style.
	// TraceContextHandler lifts these onto every record logged with the
	// enriched context.
	BatchIDKey         ContextKey = "news.batch.id"
	ArticleIDKey       ContextKey = "news.article.id"
	ProcessingStageKey ContextKey = "news.processing.stage"
)

// WithBatchID adds batch ID to context for observability
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// WithArticleID adds article ID to context for observability
func WithArticleID(ctx context.Context, articleID string) context.Context {
	return context.WithValue(ctx, ArticleIDKey, articleID)
}

// WithProcessingStage adds the pipeline stage name to context for observability
func WithProcessingStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ProcessingStageKey, stage)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
