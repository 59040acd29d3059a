package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/blob"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/queue"
	"eduvisor-backend/internal/telemetry"
	"eduvisor-backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	store, err := blob.NewFilesystemStore(cfg.BlobStorageDir)
	if err != nil {
		log.Fatal("Failed to open blob storage:", err)
	}

	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	extractor := services.NewPDFExtractor(cfg, metrics)
	chunker := services.NewChunker(cfg)
	vectorstore := services.NewVectorstoreService(store, cfg)
	builder := services.NewIndexBuilder(store, extractor, chunker, embedder, vectorstore, metrics)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(builder)

	mux := asynq.NewServeMux()
	processor.RegisterHandlers(mux)

	logger.Info("starting worker", "redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
