package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"eduvisor-backend/internal/ai"
	"eduvisor-backend/internal/blob"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/telemetry"
	"eduvisor-backend/middleware"
	"eduvisor-backend/repository"
	"eduvisor-backend/routes"
	"eduvisor-backend/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("eduvisor-backend", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	store, err := blob.NewFilesystemStore(cfg.BlobStorageDir)
	if err != nil {
		log.Fatal("Failed to open blob storage:", err)
	}

	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	completer, err := ai.NewCompleter(cfg)
	if err != nil {
		log.Fatal("Failed to initialize completer:", err)
	}

	// Repositories
	users := repository.NewUserRepository(db)
	chats := repository.NewChatRepository(db)
	courses := repository.NewCourseRepository(db)
	enrolments := repository.NewEnrolmentRepository(db)
	adminRequests := repository.NewAdminRequestRepository(db)

	// Services
	vectorstore := services.NewVectorstoreService(store, cfg)
	retriever := services.NewRetriever(vectorstore, embedder, metrics, cfg)
	chatService := services.NewChatService(retriever, completer, chats, metrics, cfg)
	insights := services.NewInsightsService(users, chats, cfg)
	alertEvaluator := services.NewAlertEvaluator(cfg, users)

	cron := services.NewCronService(alertEvaluator, vectorstore)
	if err := cron.Start(); err != nil {
		log.Fatal("Failed to start cron service:", err)
	}
	defer cron.Stop()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("eduvisor-backend"))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(redisClient, cfg))
	router.Use(middleware.APIKeyMiddleware(cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "mongodb"})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	routes.SetupChatRoutes(router, cfg, chatService, users, chats, courses, enrolments)
	routes.SetupMaterialRoutes(router, cfg, store, queueClient)
	routes.SetupCourseRoutes(router, courses, enrolments)
	routes.SetupInsightRoutes(router, insights)
	routes.SetupUserRoutes(router, users)
	routes.SetupAdminRoutes(router, users, adminRequests)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
