package provider

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// 上游回應狀態
const (
	StatusCompleted  = "completed"
	StatusIncomplete = "incomplete"
	StatusFailed     = "failed"
)

// ErrMissingCredentials 未設定 API Key
var ErrMissingCredentials = errors.New("missing api key")

// Request 表示發送到 AI 提供者的請求
type Request struct {
	System          string                 `json:"system"`
	User            string                 `json:"user"`
	SchemaName      string                 `json:"schema_name"`
	Schema          map[string]interface{} `json:"schema"`
	MaxOutputTokens int                    `json:"max_output_tokens,omitempty"`
}

// Usage token 使用量
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Status     string `json:"status"`
	Refusal    string `json:"refusal,omitempty"`
	OutputText string `json:"output_text"`
	Raw        []byte `json:"-"`
	Usage      Usage  `json:"usage"`
}

// StatusError 上游回傳非 2xx
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return e.Provider + " returned status " + strconv.Itoa(e.StatusCode)
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取請求超時時間
	GetTimeout() time.Duration

	// CheckCredentials 檢查是否已設定 API Key
	CheckCredentials() error

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey          string
	Model           string
	Timeout         time.Duration
	BaseURL         string
	MaxOutputTokens int
}
