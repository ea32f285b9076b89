// Package consumer provides a Redis Streams intake for articles.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"news-intel/internal/domain"
	"news-intel/internal/usecase"
)

// Config holds consumer configuration.
type Config struct {
	// RedisURL is the Redis connection URL.
	RedisURL string
	// GroupName is the consumer group name.
	GroupName string
	// ConsumerName is this consumer's name within the group.
	ConsumerName string
	// StreamKey is the Redis Stream key to consume from.
	StreamKey string
	// BatchSize is the number of messages to read at once.
	BatchSize int64
	// BlockTimeout is how long to block waiting for messages.
	BlockTimeout time.Duration
	// RatePerSecond throttles pipeline runs to protect the model backends.
	RatePerSecond float64
	// Enabled determines if the consumer is active.
	Enabled bool
}

// DefaultConfig returns a default consumer configuration.
func DefaultConfig() Config {
	return Config{
		RedisURL:      "redis://localhost:6379",
		GroupName:     "news-intel-group",
		ConsumerName:  "news-intel-1",
		StreamKey:     "news:events:articles",
		BatchSize:     10,
		BlockTimeout:  5 * time.Second,
		RatePerSecond: 5,
		Enabled:       false,
	}
}

// articlePayload is the JSON body of a stream message.
type articlePayload struct {
	ArticleID   string    `json:"article_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Consumer reads article events from a Redis Stream and runs each one
// through the processing pipeline. Messages within a batch are handled
// strictly in stream order.
type Consumer struct {
	client         *redis.Client
	config         Config
	processUsecase usecase.ProcessArticleUsecase
	limiter        *rate.Limiter
	logger         *slog.Logger
	shutdownChan   chan struct{}
}

// NewConsumer creates a new Redis Streams consumer.
func NewConsumer(config Config, processUsecase usecase.ProcessArticleUsecase, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Enabled {
		return &Consumer{config: config, logger: logger}, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}

	return &Consumer{
		client:         redis.NewClient(opts),
		config:         config,
		processUsecase: processUsecase,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger,
		shutdownChan:   make(chan struct{}),
	}, nil
}

// Start begins consuming events from the stream.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.config.Enabled {
		c.logger.Info("consumer disabled, not starting")
		return nil
	}

	if err := c.ensureConsumerGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("starting consumer",
		"stream", c.config.StreamKey,
		"group", c.config.GroupName,
		"consumer", c.config.ConsumerName,
	)

	go c.consumeLoop(ctx)
	return nil
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	if c.shutdownChan != nil {
		close(c.shutdownChan)
	}
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Consumer) ensureConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.config.StreamKey, c.config.GroupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer context cancelled, stopping")
			return
		case <-c.shutdownChan:
			c.logger.Info("consumer shutdown requested, stopping")
			return
		default:
			if err := c.readAndProcess(ctx); err != nil {
				c.logger.Error("error processing events", "error", err)
				time.Sleep(time.Second) // Back off on error
			}
		}
	}
}

func (c *Consumer) readAndProcess(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.GroupName,
		Consumer: c.config.ConsumerName,
		Streams:  []string{c.config.StreamKey, ">"},
		Count:    c.config.BatchSize,
		Block:    c.config.BlockTimeout,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			article, err := parseArticle(message)
			if err != nil {
				c.logger.Error("dropping malformed message",
					"message_id", message.ID,
					"error", err,
				)
				// Malformed messages are acknowledged so they don't
				// block the group forever.
				c.ack(ctx, message.ID)
				continue
			}

			state, err := c.processUsecase.Process(ctx, article)
			if err != nil {
				c.logger.Error("failed to process article",
					"message_id", message.ID,
					"article_id", article.ID,
					"error", err,
				)
				// Don't ACK failed messages, they'll be retried
				continue
			}

			if state.Failed() {
				c.logger.Warn("pipeline completed with error",
					"article_id", article.ID,
					"error", state.Error,
				)
			}

			c.ack(ctx, message.ID)
		}
	}

	return nil
}

func (c *Consumer) ack(ctx context.Context, messageID string) {
	if err := c.client.XAck(ctx, c.config.StreamKey, c.config.GroupName, messageID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message",
			"message_id", messageID,
			"error", err,
		)
	}
}

// parseArticle converts a stream message to a domain article. The
// article body rides in the "payload" field as JSON.
func parseArticle(message redis.XMessage) (domain.Article, error) {
	raw, ok := message.Values["payload"].(string)
	if !ok {
		return domain.Article{}, fmt.Errorf("message %s has no payload field", message.ID)
	}

	var payload articlePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.Article{}, fmt.Errorf("failed to parse payload: %w", err)
	}

	return domain.Article{
		ID:          payload.ArticleID,
		Title:       payload.Title,
		Body:        payload.Body,
		Source:      payload.Source,
		URL:         payload.URL,
		PublishedAt: payload.PublishedAt,
	}, nil
}
