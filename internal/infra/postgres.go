package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PoolConfig sizes the PostgreSQL connection pool. Zero values fall back
// to defaults sized for a single pipeline instance: intake is sequential,
// so the pool mostly serves the query path.
type PoolConfig struct {
	MaxConns int
	MinConns int
}

// NewPostgresDB opens the connection pool shared by the article
// repositories and the vector index. pgvector types are registered on
// every connection so embedding columns scan without manual casts.
func NewPostgresDB(ctx context.Context, dsn string, pc PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.MaxConns = 10
	if pc.MaxConns > 0 {
		config.MaxConns = int32(pc.MaxConns)
	}
	config.MinConns = 2
	if pc.MinConns > 0 {
		config.MinConns = int32(pc.MinConns)
	}
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return pool, nil
}
