package openai

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
	// DefaultBaseURL OpenAI API 位址
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel 預設模型
	DefaultModel = "gpt-4o-mini"

	providerName = "openai"
)

// Client OpenAI Responses API 客戶端
type Client struct {
	client          *resty.Client
	apiKey          string
	model           string
	timeout         time.Duration
	maxOutputTokens int
}

// inputMessage 對話輸入
type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// textFormat 結構化輸出設定
type textFormat struct {
	Type   string                 `json:"type"`
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type textConfig struct {
	Format textFormat `json:"format"`
}

// responsesRequest POST /responses 請求內容
type responsesRequest struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	Text            textConfig     `json:"text"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
}

// contentPart 輸出內容片段
type contentPart struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

// outputItem 輸出項目
type outputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

// responsesResponse POST /responses 回應
type responsesResponse struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	Output     []outputItem `json:"output"`
	OutputText string       `json:"output_text,omitempty"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient 創建 OpenAI 客戶端
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
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)

	return &Client{
		client:          client,
		apiKey:          cfg.APIKey,
		model:           model,
		timeout:         cfg.Timeout,
		maxOutputTokens: cfg.MaxOutputTokens,
	}
}

// Generate 呼叫 Responses API 並以 json_schema 限制輸出
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	body := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxOutputTokens: c.maxOutputTokens,
	}
	if req.MaxOutputTokens > 0 {
		body.MaxOutputTokens = req.MaxOutputTokens
	}
	body.Text = textConfig{Format: textFormat{
		Type:   "json_schema",
		Name:   req.SchemaName,
		Strict: true,
		Schema: req.Schema,
	}}

	common.LogDebug("發送 OpenAI 請求",
		zap.String("model", c.model),
		zap.Int("system_length", len(req.System)),
		zap.Int("user_length", len(req.User)),
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/responses")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	var result responsesResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	return toProviderResponse(&result, resp.Body()), nil
}

// toProviderResponse 彙整 output_text 片段並偵測 refusal
func toProviderResponse(r *responsesResponse, raw []byte) *provider.Response {
	out := &provider.Response{
		Status: r.Status,
		Raw:    raw,
		Usage: provider.Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
			TotalTokens:  r.Usage.TotalTokens,
		},
	}
	if out.Status == "" {
		out.Status = provider.StatusFailed
	}

	var text strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			switch part.Type {
			case "output_text":
				text.WriteString(part.Text)
			case "refusal":
				if out.Refusal == "" {
					out.Refusal = part.Refusal
				}
			}
		}
	}
	out.OutputText = text.String()
	if out.OutputText == "" {
		out.OutputText = r.OutputText
	}
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

// Close 關閉閒置連線
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

var _ provider.Provider = (*Client)(nil)
