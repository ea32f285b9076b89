package di

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"news-intel/internal/adapter/augur"
	"news-intel/internal/adapter/repository"
	"news-intel/internal/consumer"
	"news-intel/internal/domain"
	"news-intel/internal/infra/config"
	"news-intel/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	ArticleRepo domain.ArticleRepository
	Index       domain.SimilarityIndex

	// Usecases
	ProcessUsecase usecase.ProcessArticleUsecase
	QueryUsecase   usecase.QueryArticlesUsecase

	// Intake
	Consumer *consumer.Consumer

	Lexicon *domain.Lexicon
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	articleRepo := repository.NewArticleRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// External capabilities
	embedder := augur.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, cfg.CapabilityTimeout)
	extractor := augur.NewOllamaExtractor(cfg.OllamaURL, cfg.ExtractorModel, cfg.CapabilityTimeout)
	analyst := augur.NewOllamaAnalyst(cfg.OllamaURL, cfg.AnalystModel, cfg.CapabilityTimeout)
	tagger := augur.NewNERClient(cfg.NERServiceURL, cfg.NERModel, cfg.CapabilityTimeout, log)

	index := repository.NewPgVectorIndex(pool, embedder)

	// Lexicon: defaults with an optional YAML overlay
	lexicon := domain.DefaultLexicon()
	if cfg.LexiconPath != "" {
		loaded, err := domain.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load lexicon from %s: %w", cfg.LexiconPath, err)
		}
		lexicon = loaded
		log.Info("lexicon_loaded", slog.String("path", cfg.LexiconPath))
	}

	// Pipeline stages in their fixed order
	dedup := usecase.NewDedupStage(index, cfg.DedupThreshold, log)
	extract := usecase.NewExtractStage(tagger, extractor, lexicon, log)
	impact := usecase.NewImpactStage(analyst, lexicon, log)
	storage := usecase.NewStorageStage(articleRepo, txManager, index, log)

	processUsecase := usecase.NewProcessArticleUsecase(dedup, extract, impact, storage, log)

	queryUsecase := usecase.NewQueryArticlesUsecase(
		index, articleRepo, lexicon, log,
		usecase.WithQueryCache(cfg.QueryCacheSize, cfg.QueryCacheTTL),
	)

	// Stream intake
	consumerCfg := consumer.DefaultConfig()
	consumerCfg.RedisURL = cfg.RedisURL
	consumerCfg.GroupName = cfg.ConsumerGroup
	consumerCfg.ConsumerName = cfg.ConsumerName
	consumerCfg.StreamKey = cfg.ConsumerStream
	consumerCfg.RatePerSecond = cfg.ConsumerRatePerSec
	consumerCfg.Enabled = cfg.ConsumerEnabled

	streamConsumer, err := consumer.NewConsumer(consumerCfg, processUsecase, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build consumer: %w", err)
	}

	return &ApplicationComponents{
		ArticleRepo:    articleRepo,
		Index:          index,
		ProcessUsecase: processUsecase,
		QueryUsecase:   queryUsecase,
		Consumer:       streamConsumer,
		Lexicon:        lexicon,
	}, nil
}
