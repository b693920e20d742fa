package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receitas-ai/internal/api"
	"receitas-ai/internal/core/ai"
	"receitas-ai/internal/infrastructure/config"
	"receitas-ai/internal/pkg/common"
	"receitas-ai/internal/telemetry"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	pc := cfg.Provider()
	common.LogInfo("載入設定",
		zap.String("provider", cfg.AI.Provider),
		zap.String("api_key", config.MaskAPIKey(pc.APIKey)),
		zap.String("model", pc.Model),
		zap.Duration("request_timeout", cfg.AI.RequestTimeout),
	)

	// 初始化 AI 供應商
	provider, err := ai.NewProvider(cfg)
	if err != nil {
		common.LogFatal("Failed to create AI provider", zap.Error(err))
	}
	defer provider.Close()

	// Redis 為選用；連線失敗時限流自動放行
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			common.LogWarn("Redis 無法連線，限流將放行請求", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	// 指標
	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Provider: provider,
		Metrics:  metrics,
		Redis:    rdb,
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("name", cfg.App.Name),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 指標服務器
	var metricsSrv *http.Server
	if metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux := http.NewServeMux()
		mux.Handle(path, metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			common.LogInfo("啟動指標服務", zap.String("addr", cfg.Metrics.Addr), zap.String("path", path))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				common.LogError("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		common.LogFatal("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
