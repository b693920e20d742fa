package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支援的 AI 供應商
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// Config 應用配置
type Config struct {
	App        AppConfig       `mapstructure:"app"`
	Server     ServerConfig    `mapstructure:"server"`
	AI         AIConfig        `mapstructure:"ai"`
	OpenAI     ProviderConfig  `mapstructure:"openai"`
	OpenRouter ProviderConfig  `mapstructure:"openrouter"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Dedup      DedupConfig     `mapstructure:"dedup"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	LogLevel   string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error fatal"`
	LogFile    string          `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name" validate:"required"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"min=1"`
}

// AIConfig 生成流程設定
type AIConfig struct {
	Provider       string        `mapstructure:"provider" validate:"oneof=openai openrouter"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// ProviderConfig 上游模型供應商設定（OpenAI / OpenRouter 共用）
type ProviderConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model" validate:"required"`
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" validate:"min=0"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests" validate:"required_if=Enabled true,omitempty,min=1"`
	Window   time.Duration `mapstructure:"window" validate:"required_if=Enabled true"`
}

// DedupConfig 重複請求防護
type DedupConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
}

// RedisConfig Redis 連線設定；Addr 為空時使用本機記憶體限流
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// MetricsConfig Prometheus 指標設定，使用獨立的監聽埠
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path"`
}

// Provider 回傳目前選用的供應商設定
func (c *Config) Provider() ProviderConfig {
	if c.AI.Provider == ProviderOpenRouter {
		return c.OpenRouter
	}
	return c.OpenAI
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 可有可無
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"server.port":           "PORT",
		"ai.provider":           "AI_PROVIDER",
		"openai.api_key":        "OPENAI_API_KEY",
		"openai.model":          "OPENAI_MODEL",
		"openai.base_url":       "OPENAI_BASE_URL",
		"openrouter.api_key":    "OPENROUTER_API_KEY",
		"openrouter.model":      "OPENROUTER_MODEL",
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASSWORD",
		"rate_limit.enabled":    "RATE_LIMIT_ENABLED",
		"rate_limit.requests":   "RATE_LIMIT_REQUESTS",
		"rate_limit.window":     "RATE_LIMIT_WINDOW",
		"dedup.enabled":         "DEDUP_ENABLED",
		"dedup.window":          "DEDUP_WINDOW",
		"metrics.enabled":       "METRICS_ENABLED",
		"metrics.addr":          "METRICS_ADDR",
		"log_level":             "LOG_LEVEL",
		"log_file":              "LOG_FILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	// 設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"provider:", v.GetString("ai.provider"),
		"openai_api_key:", MaskAPIKey(v.GetString("openai.api_key")),
		"openai_model:", v.GetString("openai.model"),
	)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "Receitas AI Worker")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 生成流程
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.request_timeout", "110s")

	// OpenAI 設定
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.max_output_tokens", 0)
	v.SetDefault("openai.timeout", "50s")

	// OpenRouter 設定
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_output_tokens", 4096)
	v.SetDefault("openrouter.timeout", "50s")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1m")

	// 重複請求
	v.SetDefault("dedup.enabled", false)
	v.SetDefault("dedup.window", "1s")

	// Redis
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// 指標
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

var validate = validator.New()

// Validate 驗證設定
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on %q", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}
