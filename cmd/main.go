package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cosmosits/questionbank-backend/internal/clients/openai"
	"github.com/cosmosits/questionbank-backend/internal/clients/pinecone"
	"github.com/cosmosits/questionbank-backend/internal/data/db"
	questionrepos "github.com/cosmosits/questionbank-backend/internal/data/repos/questions"
	"github.com/cosmosits/questionbank-backend/internal/http/handlers"
	"github.com/cosmosits/questionbank-backend/internal/observability"
	"github.com/cosmosits/questionbank-backend/internal/platform/envutil"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
	"github.com/cosmosits/questionbank-backend/internal/server"
	"github.com/cosmosits/questionbank-backend/internal/services"
)

func main() {
	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	serviceName := envutil.Str("OTEL_SERVICE_NAME", "questionbank-backend")
	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: envutil.Str("APP_ENV", "development"),
		Version:     envutil.Str("APP_VERSION", "dev"),
	})
	if shutdownOtel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOtel(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Redis (optional; namespace host cache and sweep leader lock degrade
	// gracefully without it)
	var rdb *goredis.Client
	if addr := envutil.Str("REDIS_ADDR", ""); addr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: envutil.Str("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unreachable; continuing without it", "error", err)
			rdb = nil
		}
	}

	// Repos
	log.Info("Setting up Repos from main...")
	partRepo := questionrepos.NewQuestionPartRepo(thePG, log)
	intentRepo := questionrepos.NewSyncIntentRepo(thePG, log)

	// Clients
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	pineconeClient, err := pinecone.New(log, pinecone.Config{
		APIKey:     envutil.Str("PINECONE_API_KEY", ""),
		APIVersion: envutil.Str("PINECONE_API_VERSION", ""),
		BaseURL:    envutil.Str("PINECONE_BASE_URL", ""),
		Timeout:    envutil.Seconds("PINECONE_TIMEOUT_SECONDS", 30*time.Second),
	})
	if err != nil {
		log.Error("Could not init PineconeClient", "error", err)
		os.Exit(1)
	}
	vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
	if err != nil {
		log.Error("Could not init VectorStore", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	embedder, err := services.NewEmbeddingService(log, openaiClient)
	if err != nil {
		log.Error("Could not init EmbeddingService", "error", err)
		os.Exit(1)
	}
	nsPrefix := envutil.Str("PINECONE_NAMESPACE_PREFIX", "course")
	resolver, err := services.NewNamespaceResolver(log, pineconeClient, rdb, services.NamespaceResolverConfig{
		IndexName:       envutil.Str("PINECONE_INDEX_NAME", "question-embeddings"),
		NamespacePrefix: nsPrefix,
		Dimension:       envutil.Int("PINECONE_DIMENSION", 1536),
		Metric:          envutil.Str("PINECONE_METRIC", "cosine"),
		Cloud:           envutil.Str("PINECONE_CLOUD", "aws"),
		Region:          envutil.Str("PINECONE_REGION", "us-east-1"),
	})
	if err != nil {
		log.Error("Could not init NamespaceResolver", "error", err)
		os.Exit(1)
	}
	syncService := services.NewQuestionSyncService(thePG, log, partRepo, intentRepo, embedder, resolver, vectorStore, nsPrefix)

	reconcileService := services.NewReconcileService(log, partRepo, intentRepo, resolver, vectorStore, rdb, services.ReconcileConfig{
		Interval:  envutil.Seconds("RECONCILE_INTERVAL_SECONDS", 5*time.Minute),
		MinAge:    envutil.Seconds("RECONCILE_MIN_AGE_SECONDS", time.Minute),
		BatchSize: envutil.Int("RECONCILE_BATCH_SIZE", 100),
	})
	reconcileService.Start(ctx)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler()
	questionHandler := handlers.NewQuestionHandler(log, syncService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     serviceName,
		HealthHandler:   healthHandler,
		QuestionHandler: questionHandler,
	})

	port := envutil.Str("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
