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
	Port     string
	GinMode  string

	CORSOrigins  []string
	MaxFileSize  int64
	AllowedTypes []string

	// Redis Configuration (queue backend)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Worker Configuration
	WorkerConcurrency int
	JobMaxAttempts    int
	JobBaseDelay      time.Duration
	JobTimeout        time.Duration

	// Chunking
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int

	// Embeddings configuration
	EmbeddingsProvider    string // "google" (default), "local"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	EmbedServiceURL       string // base URL for the "local" provider

	// Generation
	GeminiAPIKey    string
	GenerationModel string

	// Vector index service
	VectorIndexURL     string
	VectorIndexAPIKey  string
	VectorIndexTimeout time.Duration
	RetrievalTopK      int

	// Rate limiting (per IP + endpoint, Redis-backed)
	RateLimitReqs   int
	RateLimitWindow int // seconds

	// Tracing; empty disables the OTLP exporter
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/document_qa"),
		DBName:   getEnv("DB_NAME", "document_qa"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 5242880), // 5MB
		AllowedTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 1),
		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
		JobBaseDelay:      getEnvDuration("JOB_BASE_DELAY", time.Second),
		JobTimeout:        getEnvDuration("JOB_TIMEOUT", 10*time.Minute),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkSize: getEnvInt("MIN_CHUNK_SIZE", 100),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbedServiceURL:       getEnv("EMBED_SERVICE_URL", "http://localhost:8000"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),

		VectorIndexURL:     getEnv("VECTOR_INDEX_URL", "http://localhost:8100"),
		VectorIndexAPIKey:  getEnv("VECTOR_INDEX_API_KEY", ""),
		VectorIndexTimeout: getEnvDuration("VECTOR_INDEX_TIMEOUT", 30*time.Second),
		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 3),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.VectorIndexURL == "" {
		return nil, fmt.Errorf("VECTOR_INDEX_URL is required - set it in .env file")
	}

	if cfg.JobMaxAttempts < 1 {
		return nil, fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
