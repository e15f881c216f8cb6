package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"yuja/internal/ai"
	"yuja/internal/config"
	"yuja/internal/handler"
	novelHandler "yuja/internal/handler/novel"
	novelModel "yuja/internal/model/novel"
	"yuja/internal/pkg/cache"
	"yuja/internal/pkg/mongodb"
	"yuja/internal/pkg/ratelimit"
	"yuja/internal/pkg/storagefactory"
	novelRepo "yuja/internal/repository/novel"
	"yuja/internal/server/middleware"
	novelService "yuja/internal/service/novel"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
// MongoDB、存储和两个模型客户端是硬依赖，初始化失败直接返回错误；
// Redis 只承载提示词缓存镜像，不可用时降级为空缓存继续跑。
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	// 创建索引
	if err := mongodb.EnsureAllIndexes(ctx, mongoClient.Database(),
		&novelModel.Novel{},
		&novelModel.Chapter{},
		&novelModel.Character{},
		&novelModel.Scene{},
	); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	var promptCache novelService.PromptCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, prompt cache disabled")
			promptCache = cache.NewNoop()
		} else {
			redisCache = rc
			promptCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	} else {
		promptCache = cache.NewNoop()
	}

	// 初始化图片存储
	store, err := storagefactory.New(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.Info().Str("type", store.Type()).Msg("initialized storage")

	// 文本模型和图片模型共享一个限速闸门
	gate := ratelimit.NewGate(ratelimit.DefaultInterval)

	textClient, err := ai.NewClient(ctx, &cfg.AI, gate)
	if err != nil {
		return nil, fmt.Errorf("init text model client: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized text model client")

	imageClient, err := ai.NewImageClient(ctx, &cfg.Image, gate)
	if err != nil {
		return nil, fmt.Errorf("init image model client: %w", err)
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	db := mongoClient.Database()
	svc := novelService.NewNovelService(
		novelRepo.NewNovelRepo(db),
		novelRepo.NewChapterRepo(db),
		novelRepo.NewCharacterRepo(db),
		novelRepo.NewSceneRepo(db),
		textClient,
		imageClient,
		store,
		promptCache,
	)

	// 设置路由
	srv.setupRoutes(novelHandler.NewHandler(svc))

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(novelHdl *novelHandler.Handler) {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	pingers := map[string]handler.Pinger{
		"mongo": s.mongo.Ping,
	}
	if s.redis != nil {
		pingers["redis"] = s.redis.Ping
	}
	healthHandler := handler.NewHealthHandler(pingers)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 本地存储时直接静态托管生成的图片
	if s.cfg.Storage.Type == "local" && s.cfg.Storage.Local != nil {
		s.engine.Static("/files", s.cfg.Storage.Local.BasePath)
	}

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 小说管理
		v1.POST("/novels", novelHdl.CreateNovel)
		v1.GET("/novels", novelHdl.ListNovels)
		v1.GET("/novels/:novel_id", novelHdl.GetNovel)
		v1.DELETE("/novels/:novel_id", novelHdl.DeleteNovel)
		v1.POST("/novels/:novel_id/preprocess", novelHdl.PreprocessScript)

		// 章节管理
		v1.POST("/novels/:novel_id/chapters/split", novelHdl.SplitChapters)
		v1.GET("/novels/:novel_id/chapters", novelHdl.GetChapters)

		// 角色管理
		v1.POST("/novels/:novel_id/characters/extract", novelHdl.ExtractCharacters)
		v1.GET("/novels/:novel_id/characters", novelHdl.GetCharacters)
		v1.POST("/novels/:novel_id/characters/images", novelHdl.GenerateCharacterImages)
		v1.DELETE("/novels/:novel_id/characters/:character_id", novelHdl.DeleteCharacter)

		// 场景管理
		v1.POST("/novels/:novel_id/scenes/split", novelHdl.SplitScenes)
		v1.GET("/novels/:novel_id/scenes", novelHdl.GetScenes)
		v1.POST("/novels/:novel_id/scenes/images", novelHdl.GenerateSceneImages)
		v1.GET("/novels/:novel_id/scenes/:scene_id/prompt", novelHdl.GetScenePrompt)
		v1.DELETE("/novels/:novel_id/scenes/:scene_id", novelHdl.DeleteScene)

		// 自动化
		v1.POST("/novels/:novel_id/automation", novelHdl.RunAutomation)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
