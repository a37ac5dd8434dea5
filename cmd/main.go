package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"document-qa-platform/internal/ai"
	"document-qa-platform/internal/config"
	"document-qa-platform/internal/logger"
	"document-qa-platform/internal/queue"
	"document-qa-platform/internal/store"
	"document-qa-platform/internal/telemetry"
	"document-qa-platform/internal/vectorindex"
	"document-qa-platform/middleware"
	"document-qa-platform/routes"
	"document-qa-platform/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
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

	logger.InitLogger(cfg)

	// Tracing is on only when a collector endpoint is configured
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := telemetry.InitTracer("document-qa-platform", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Verify the queue backend is reachable
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to configure Redis:", err)
	}
	defer rdb.Close()
	if err := config.PingRedis(context.Background(), rdb); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	documentStore := store.NewStore(mongoClient.Database(cfg.DBName))

	// Queue client for the ingestion coordinator
	retryPolicy := queue.RetryPolicy{
		MaxAttempts: cfg.JobMaxAttempts,
		BaseDelay:   cfg.JobBaseDelay,
		Multiplier:  2,
	}
	queueClient := queue.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, retryPolicy, cfg.JobTimeout)
	defer queueClient.Close()

	// AI clients
	embedder, closeEmbedder, err := newEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedding client:", err)
	}
	defer closeEmbedder()

	generator, err := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer generator.Close()

	indexClient := vectorindex.NewClient(cfg.VectorIndexURL, cfg.VectorIndexAPIKey, cfg.VectorIndexTimeout)

	// Services
	ingestor := services.NewIngestor(documentStore, queueClient, services.NewPDFExtractor())
	questions := services.NewQuestionService(embedder, indexClient, generator, cfg.RetrievalTopK)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.Tracing())
	router.Use(middleware.Metrics(metrics))
	router.Use(middleware.RateLimit(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))
	// Uploads dominate body size; everything else is far below this
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize * 2))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, documentStore, ingestor)
	routes.SetupCorpusRoutes(router, cfg, documentStore, ingestor, questions)
	routes.SetupQuestionRoutes(router, questions)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// newEmbedder picks the configured embeddings provider.
func newEmbedder(cfg *config.Config) (services.QueryEmbedder, func() error, error) {
	switch cfg.EmbeddingsProvider {
	case "google", "":
		chunker := ai.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
		embedder, err := ai.NewGeminiEmbedder(context.Background(), cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel, chunker)
		if err != nil {
			return nil, nil, err
		}
		return embedder, embedder.Close, nil

	case "local":
		embedder := ai.NewLocalEmbedder(cfg.EmbedServiceURL, cfg.VectorIndexTimeout)
		return embedder, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}
