package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"document-qa-platform/internal/ai"
	"document-qa-platform/internal/config"
	"document-qa-platform/internal/logger"
	"document-qa-platform/internal/queue"
	"document-qa-platform/internal/store"
	"document-qa-platform/internal/telemetry"
	"document-qa-platform/internal/vectorindex"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := telemetry.InitTracer("document-qa-worker", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	documentStore := store.NewStore(mongoClient.Database(cfg.DBName))

	// Embedding client for document processing
	embedder, err := newEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding client:", err)
	}

	indexClient := vectorindex.NewClient(cfg.VectorIndexURL, cfg.VectorIndexAPIKey, cfg.VectorIndexTimeout)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	retryPolicy := queue.RetryPolicy{
		MaxAttempts: cfg.JobMaxAttempts,
		BaseDelay:   cfg.JobBaseDelay,
		Multiplier:  2,
	}

	// Create Asynq server. The reference configuration is a single worker
	// lane; raising the concurrency trades per-document ordering across
	// overlapping re-uploads for throughput.
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return retryPolicy.Delay(n)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewProcessor(documentStore, embedder, indexClient).WithMetrics(metrics)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessDocument, processor.ProcessDocument)

	logger.Info("worker starting",
		"concurrency", cfg.WorkerConcurrency,
		"max_attempts", retryPolicy.MaxAttempts,
		"base_delay", retryPolicy.BaseDelay.String(),
		"redis", redisOpt.Addr)

	// Run blocks until SIGTERM/SIGINT, letting in-flight jobs finish.
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}

// newEmbedder picks the configured embeddings provider.
func newEmbedder(cfg *config.Config) (queue.EmbeddingClient, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		chunker := ai.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
		return ai.NewGeminiEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, chunker)

	case "local":
		return ai.NewLocalEmbedder(cfg.EmbedServiceURL, cfg.JobTimeout), nil

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}
