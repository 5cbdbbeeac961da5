// Package wire 负责组件装配与生命周期管理
package wire

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"memora-api/internal/application/ask"
	"memora-api/internal/application/ingest"
	"memora-api/internal/config"
	"memora-api/internal/infrastructure/embedding"
	"memora-api/internal/infrastructure/extract"
	"memora-api/internal/infrastructure/llm"
	"memora-api/internal/infrastructure/persistence/elastic"
	"memora-api/internal/infrastructure/persistence/postgres"
	"memora-api/internal/infrastructure/persistence/redis"
	"memora-api/internal/infrastructure/storage/gcs"
	"memora-api/internal/interfaces/http/handler"
	"memora-api/internal/interfaces/http/router"
	"memora-api/pkg/logger"
)

// App 装配完成的应用
type App struct {
	router *router.Router

	ES       *elastic.Client
	Postgres *postgres.Client
	Redis    *redis.Client
	GCS      *gcs.Client
}

// Engine 返回 HTTP 引擎
func (a *App) Engine() *gin.Engine {
	return a.router.Engine()
}

// InitializeApp 按依赖顺序装配应用。
// Elasticsearch 是硬依赖；Postgres、Redis、GCS、Embedding 任一缺席时
// 对应能力降级，服务仍可启动。
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	app := &App{}
	cleanup := func() { app.close(ctx) }

	// Elasticsearch：检索与建档的主存储
	esClient, err := elastic.NewClient(&cfg.Search.Elasticsearch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init elasticsearch: %w", err)
	}
	app.ES = esClient
	momentRepo := elastic.NewMomentRepository(esClient)
	fileRepo := elastic.NewFileContentRepository(esClient)

	// Postgres：问答流水，尽力而为
	var askLogs ask.AskLogRepository
	var askLogQueries *postgres.AskLogRepository
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		logger.Warn(ctx, "postgres unavailable, ask logging disabled", "error", err.Error())
	} else {
		app.Postgres = pgClient
		repo := postgres.NewAskLogRepository(pgClient)
		askLogs = repo
		askLogQueries = repo
	}

	// Redis：计划缓存与限流
	var planCache ask.PlanCache
	var rateLimiter *redis.RateLimiter
	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, plan cache and rate limiting disabled", "error", err.Error())
	} else {
		app.Redis = redisClient
		planCache = redis.NewPlanCache(redis.NewCache(redisClient), cfg.Cache.PlanCacheTTL)
		rateLimiter = redis.NewRateLimiter(redisClient)
	}

	// GCS：证据签名与文本提取
	var signer ask.Signer
	var extractor ingest.Extractor
	gcsClient, err := gcs.NewClient(ctx, &cfg.Storage.GCS)
	if err != nil {
		logger.Warn(ctx, "gcs unavailable, evidence signing and text extraction disabled", "error", err.Error())
	} else {
		app.GCS = gcsClient
		signer = gcsClient
		extractor = extract.NewTextExtractor(gcsClient)
	}

	// Embedding：缺席时检索退化为纯词法
	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Warn(ctx, "embedder unavailable, falling back to lexical-only retrieval", "error", err.Error())
		embedder = nil
	}

	// LLM 工厂与问答管线
	chatFactory := llm.NewEinoFactory(cfg)
	planner := ask.NewPlanner(chatFactory, planCache, cfg)
	retriever := ask.NewRetriever(embedder, momentRepo, fileRepo, cfg)
	evidence := ask.NewEvidenceResolver(signer, cfg)
	composer := ask.NewComposer(chatFactory, cfg)
	pipeline := ask.NewPipeline(planner, retriever, evidence, composer, askLogs)

	// 摄取
	ingestor := ingest.NewIngestor(embedder, momentRepo, fileRepo, extractor, cfg)

	// HTTP 层
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(esClient, app.Postgres, app.Redis, app.GCS),
		Ask:    handler.NewAskHandler(pipeline, askLogQueries),
		Moment: handler.NewMomentHandler(ingestor),
		File:   handler.NewFileHandler(fileRepo),
	}
	app.router = router.New(cfg, handlers, rateLimiter)

	return app, cleanup, nil
}

// close 逆序释放外部连接
func (a *App) close(ctx context.Context) {
	if a.GCS != nil {
		if err := a.GCS.Close(); err != nil {
			logger.Warn(ctx, "failed to close gcs client", "error", err.Error())
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn(ctx, "failed to close redis client", "error", err.Error())
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			logger.Warn(ctx, "failed to close postgres client", "error", err.Error())
		}
	}
}
