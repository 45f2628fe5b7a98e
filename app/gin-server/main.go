package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/hearsay-labs/hearsay/config"
	"github.com/hearsay-labs/hearsay/internal/api/handlers"
	"github.com/hearsay-labs/hearsay/internal/api/middleware"
	"github.com/hearsay-labs/hearsay/internal/api/routes"
	"github.com/hearsay-labs/hearsay/internal/buffer"
	"github.com/hearsay-labs/hearsay/internal/cache"
	"github.com/hearsay-labs/hearsay/internal/chunker"
	"github.com/hearsay-labs/hearsay/internal/logger"
	"github.com/hearsay-labs/hearsay/internal/notify"
	"github.com/hearsay-labs/hearsay/internal/providers/embedding"
	"github.com/hearsay-labs/hearsay/internal/providers/summarizer"
	"github.com/hearsay-labs/hearsay/internal/query"
	mongorepo "github.com/hearsay-labs/hearsay/internal/repositories/mongo"
	pgrepo "github.com/hearsay-labs/hearsay/internal/repositories/postgres"
)

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()
	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	// segment journal is optional
	var segments mongorepo.SegmentRepository
	if os.Getenv("MONGO_URI") != "" {
		if err := config.InitMongo(); err != nil {
			log.Fatalf("MongoDB init error: %v", err)
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			log.Fatalf("MongoDB index error: %v", err)
		}
		segments = mongorepo.NewSegmentRepo(config.MongoDatabase(), envSeconds("SEGMENT_TTL_SECONDS", 24*time.Hour))
		log.Info("MongoDB connected")
	} else {
		log.Warn("MONGO_URI not set; segment journal disabled")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	embedder, err := embedding.NewOpenAI(apiKey, os.Getenv("EMBEDDING_MODEL"))
	if err != nil {
		log.Fatalf("embedding provider init error: %v", err)
	}

	var summ summarizer.Provider
	switch os.Getenv("SUMMARIZER_PROVIDER") {
	case "vertex":
		summ, err = summarizer.NewVertexGemini(ctx,
			os.Getenv("GOOGLE_PROJECT_ID"),
			os.Getenv("GOOGLE_LOCATION"),
			os.Getenv("VERTEX_MODEL"))
	default:
		summ, err = summarizer.NewOpenAI(apiKey, os.Getenv("CHAT_MODEL"))
	}
	if err != nil {
		log.Fatalf("summarizer init error: %v", err)
	}
	defer summ.Close()

	records := pgrepo.NewRecordRepo(config.PostgresDB)
	interactions := pgrepo.NewInteractionRepo(config.PostgresDB)
	emitter := notify.NewRedisEmitter(config.RedisClient)

	coordinator := buffer.NewCoordinator(
		buffer.Config{
			Policy:     buffer.Policy(os.Getenv("BUFFER_POLICY")),
			FlushAfter: envSeconds("BUFFER_FLUSH_SECONDS", buffer.DefaultFlushAfter),
			SilenceGap: envSeconds("BUFFER_SILENCE_GAP_SECONDS", buffer.DefaultSilenceGap),
		},
		chunker.FromEnv(os.Getenv("CHUNK_STRATEGY")),
		embedder, records, emitter, segments, log,
	)

	orchestrator := query.NewOrchestrator(embedder, records, summ, query.Options{
		TopK:         envInt("QUERY_TOP_K", query.DefaultTopK),
		Interactions: interactions,
		Cache:        cache.NewRedisCache(config.RedisClient),
		Logger:       log,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Memory: handlers.NewMemoryHandler(orchestrator, segments),
		WS:     handlers.NewWSHandler(coordinator, orchestrator, config.RedisClient, log),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
