package api

import (
	"errors"
	"net/http"

	"receitas-ai/internal/api/handlers/health"
	recipeHandler "receitas-ai/internal/api/handlers/recipe"
	"receitas-ai/internal/api/middleware"
	"receitas-ai/internal/api/router"
	"receitas-ai/internal/core/ai/provider"
	recipeService "receitas-ai/internal/core/recipe"
	"receitas-ai/internal/infrastructure/config"
	"receitas-ai/internal/pkg/common"
	"receitas-ai/internal/ratelimit"
	"receitas-ai/internal/telemetry"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// GeneratePath 唯一的生成端點
const GeneratePath = "/generate"

// Dependencies 路由所需的外部依賴；Metrics 與 Redis 可為 nil
type Dependencies struct {
	Provider provider.Provider
	Metrics  *telemetry.Metrics
	Redis    *redis.Client
}

// notFound 回應 {ok:false,error:"Not found",path}
func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"ok":    false,
		"error": common.MsgNotFound,
		"path":  c.Request.URL.Path,
	})
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (http.Handler, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("AI provider is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	// 註冊基礎中間件
	engine.Use(middleware.Recovery())
	engine.Use(requestid.New())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Metrics(deps.Metrics))
	engine.Use(middleware.CORS())

	// 初始化服務
	opts := []recipeService.Option{
		recipeService.WithMaxOutputTokens(cfg.Provider().MaxOutputTokens),
	}
	if deps.Metrics != nil {
		opts = append(opts, recipeService.WithObserver(deps.Metrics))
	}
	suggestionSvc := recipeService.NewSuggestionService(deps.Provider, opts...)
	handler := recipeHandler.NewHandler(suggestionSvc)

	// 健康檢查路由
	healthHandler := health.Handler(cfg.App.Name)
	engine.GET("/", healthHandler)
	engine.GET("/health", healthHandler)

	// 生成路由
	engine.POST(GeneratePath,
		middleware.RateLimit(cfg.RateLimit, ratelimit.NewLimiter(deps.Redis), deps.Metrics),
		middleware.BodySizeLimit(cfg.Server.MaxBodyBytes),
		middleware.Deduplication(cfg.Dedup),
		middleware.Timeout(cfg.AI.RequestTimeout),
		handler.HandleGenerate,
	)

	engine.NoRoute(notFound)
	engine.NoMethod(func(c *gin.Context) {
		if c.Request.URL.Path == GeneratePath {
			e := common.ErrWrongMethod
			c.AbortWithStatusJSON(e.Status, e.Response())
			return
		}
		notFound(c)
	})

	common.LogInfo("Router setup completed successfully",
		zap.String("model", deps.Provider.GetModel()),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("redis_rate_limit", deps.Redis != nil),
		zap.Bool("dedup_enabled", cfg.Dedup.Enabled),
		zap.Duration("timeout", cfg.AI.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router.Wrap(engine), nil
}
