package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int
	DBMinConns int

	OllamaURL      string
	EmbeddingModel string
	ExtractorModel string
	AnalystModel   string

	NERServiceURL string
	NERModel      string

	RedisURL           string
	ConsumerEnabled    bool
	ConsumerGroup      string
	ConsumerName       string
	ConsumerStream     string
	ConsumerRatePerSec float64

	DedupThreshold float64
	LexiconPath    string

	QueryCacheSize int
	QueryCacheTTL  time.Duration

	CapabilityTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "news-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "news_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "news_password"),
		DBName:     getEnv("DB_NAME", "news_db"),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns: getEnvInt("DB_MIN_CONNS", 2),

		OllamaURL:      getEnv("OLLAMA_URL", "http://ollama:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		ExtractorModel: getEnv("EXTRACTOR_MODEL", "gemma3:4b"),
		AnalystModel:   getEnv("ANALYST_MODEL", "gemma3:4b"),

		NERServiceURL: getEnv("NER_SERVICE_URL", "http://ner-service:8002"),
		NERModel:      getEnv("NER_MODEL", "en_core_web_sm"),

		RedisURL:           getEnv("REDIS_URL", "redis://redis:6379"),
		ConsumerEnabled:    getEnvBool("CONSUMER_ENABLED", false),
		ConsumerGroup:      getEnv("CONSUMER_GROUP", "news-intel-group"),
		ConsumerName:       getEnv("CONSUMER_NAME", "news-intel-1"),
		ConsumerStream:     getEnv("CONSUMER_STREAM", "news:events:articles"),
		ConsumerRatePerSec: getEnvFloat("CONSUMER_RATE_PER_SEC", 5),

		DedupThreshold: getEnvFloat("DEDUP_THRESHOLD", 0.85),
		LexiconPath:    getEnv("LEXICON_PATH", ""),

		QueryCacheSize: getEnvInt("QUERY_CACHE_SIZE", 256),
		QueryCacheTTL:  getEnvDuration("QUERY_CACHE_TTL", 5*time.Minute),

		CapabilityTimeout: getEnvDuration("CAPABILITY_TIMEOUT", 120*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
