package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"receitas-ai/internal/core/ai/provider"
	"receitas-ai/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL OpenRouter API 位址
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	// DefaultModel 預設模型
	DefaultModel = "openai/gpt-4o-mini"

	providerName = "openrouter"
)

// Client OpenRouter API 客戶端
type Client struct {
	client          *resty.Client
	apiKey          string
	model           string
	timeout         time.Duration
	maxOutputTokens int
}

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONSchema response_format 內的 schema 設定
type JSONSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

// ResponseFormat 結構化輸出
type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

// Request 表示 API 請求
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice 選擇結構
type Choice struct {
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string `json:"role"`
		Content string `json:"content"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"message"`
}

// UsageInfo 使用量信息
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
	Error   *struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error,omitempty"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://receitas-ai.app").
		SetHeader("X-Title", "Receitas AI")

	return &Client{
		client:          client,
		apiKey:          cfg.APIKey,
		model:           model,
		timeout:         cfg.Timeout,
		maxOutputTokens: cfg.MaxOutputTokens,
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	body := &Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens: c.maxOutputTokens,
		ResponseFormat: &ResponseFormat{
			Type: "json_schema",
			JSONSchema: JSONSchema{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	}
	if req.MaxOutputTokens > 0 {
		body.MaxTokens = req.MaxOutputTokens
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", body.Model),
		)
		return nil, &provider.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	var result Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	return toProviderResponse(&result, resp.Body()), nil
}

// toProviderResponse finish_reason=length 視為不完整，錯誤或無選項視為失敗
func toProviderResponse(r *Response, raw []byte) *provider.Response {
	out := &provider.Response{
		Status: provider.StatusCompleted,
		Raw:    raw,
		Usage: provider.Usage{
			InputTokens:  r.Usage.PromptTokens,
			OutputTokens: r.Usage.CompletionTokens,
			TotalTokens:  r.Usage.TotalTokens,
		},
	}

	if r.Error != nil || len(r.Choices) == 0 {
		out.Status = provider.StatusFailed
		return out
	}

	choice := r.Choices[0]
	if choice.FinishReason == "length" {
		out.Status = provider.StatusIncomplete
	}
	out.Refusal = choice.Message.Refusal
	out.OutputText = choice.Message.Content
	return out
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// CheckCredentials 檢查是否已設定 API Key
func (c *Client) CheckCredentials() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return provider.ErrMissingCredentials
	}
	return nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

var _ provider.Provider = (*Client)(nil)
