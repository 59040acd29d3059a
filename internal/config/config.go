package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string

	Port        string
	GinMode     string
	CORSOrigins []string

	// API key gate (bcrypt hashes of accepted keys, comma separated)
	APIKeyHashes []string

	// Blob storage root for PDFs and index snapshots
	BlobStorageDir string
	MaxFileSize    int64
	AllowedTypes   []string

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	RetrievalK    int
	MaxQueryChars int

	// Usage budget
	TokenCeiling         int
	TokenWarnPercent     int
	TokenCriticalPercent int

	// Index snapshot cache
	IndexCacheTTL time.Duration

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Redis (rate limiter + asynq broker)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// LLM / embeddings providers: "openai" (default) or "google"
	LLMProvider        string
	EmbeddingsProvider string
	VectorDimensions   int

	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIEmbeddingsModel string

	GeminiAPIKey          string
	GeminiModel           string
	GoogleEmbeddingsModel string

	MaxOutputTokens int
	Temperature     float64

	// Retry budget for embedding/completion calls
	AIMaxRetries   int
	AIRetryBackoff time.Duration

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/eduvisor"),
		DBName:   getEnv("DB_NAME", "eduvisor"),

		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		APIKeyHashes: splitNonEmpty(getEnv("API_KEY_HASHES", "")),

		BlobStorageDir: getEnv("BLOB_STORAGE_DIR", "./storage"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		AllowedTypes:   strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf"), ","),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 3000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		RetrievalK:    getEnvInt("RETRIEVAL_K", 5),
		MaxQueryChars: getEnvInt("MAX_QUERY_CHARS", 400),

		TokenCeiling:         getEnvInt("TOKEN_CEILING", 150000),
		TokenWarnPercent:     getEnvInt("TOKEN_WARN_PERCENT", 80),
		TokenCriticalPercent: getEnvInt("TOKEN_CRITICAL_PERCENT", 95),

		IndexCacheTTL: time.Duration(getEnvInt("INDEX_CACHE_TTL_SECONDS", 3600)) * time.Second,

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LLMProvider:        getEnv("LLM_PROVIDER", "openai"),
		EmbeddingsProvider: getEnv("EMBEDDINGS_PROVIDER", "openai"),
		VectorDimensions:   getEnvInt("VECTOR_DIM", 1536),

		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 800),
		Temperature:     getEnvFloat64("TEMPERATURE", 0.6),

		AIMaxRetries:   getEnvInt("AI_MAX_RETRIES", 3),
		AIRetryBackoff: time.Duration(getEnvInt("AI_RETRY_BACKOFF_MS", 500)) * time.Millisecond,

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields for the selected providers
	switch cfg.EmbeddingsProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embeddings provider")
		}
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the google embeddings provider")
		}
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai LLM provider")
		}
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the google LLM provider")
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
