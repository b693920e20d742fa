package ai

import (
	"fmt"

	"receitas-ai/internal/core/ai/openai"
	"receitas-ai/internal/core/ai/openrouter"
	"receitas-ai/internal/core/ai/provider"
	"receitas-ai/internal/infrastructure/config"
	"receitas-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// NewProvider 依 ai.provider 建立上游客戶端；未設定 API Key 時仍可啟動
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	pc := cfg.Provider()
	settings := provider.Config{
		APIKey:          pc.APIKey,
		Model:           pc.Model,
		Timeout:         pc.Timeout,
		BaseURL:         pc.BaseURL,
		MaxOutputTokens: pc.MaxOutputTokens,
	}

	var p provider.Provider
	switch cfg.AI.Provider {
	case "", config.ProviderOpenAI:
		p = openai.NewClient(settings)
	case config.ProviderOpenRouter:
		p = openrouter.NewClient(settings)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}

	if err := p.CheckCredentials(); err != nil {
		common.LogWarn("未設定 API Key，/generate 將回傳 500",
			zap.String("provider", cfg.AI.Provider),
		)
	}
	common.LogInfo("AI 供應商已建立",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", p.GetModel()),
		zap.Duration("timeout", p.GetTimeout()),
	)
	return p, nil
}
