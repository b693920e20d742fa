package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"receitas-ai/internal/core/ai/provider"
	"receitas-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// maxAttempts 第一次生成加上一次嚴格模式重試
const maxAttempts = 2

// 生成結果，用於指標
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeViolation = "violation"
	OutcomeRecovered = "recovered"
	OutcomeFailed    = "failed"
)

// Observer 接收生成流程事件
type Observer interface {
	ObserveGeneration(model, outcome string, d time.Duration)
	ObserveStrictRetry(outcome string)
	ObserveViolations(n int)
	ObserveTokens(model string, input, output int)
}

type nopObserver struct{}

func (nopObserver) ObserveGeneration(string, string, time.Duration) {}
func (nopObserver) ObserveStrictRetry(string)                       {}
func (nopObserver) ObserveViolations(int)                           {}
func (nopObserver) ObserveTokens(string, int, int)                  {}

// SuggestionService 食譜建議服務
type SuggestionService struct {
	provider        provider.Provider
	observer        Observer
	maxOutputTokens int
}

// Option 設定 SuggestionService
type Option func(*SuggestionService)

// WithObserver 設定指標觀察者
func WithObserver(o Observer) Option {
	return func(s *SuggestionService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMaxOutputTokens 設定輸出 token 上限
func WithMaxOutputTokens(n int) Option {
	return func(s *SuggestionService) {
		s.maxOutputTokens = n
	}
}

// NewSuggestionService 創建新的食譜建議服務
func NewSuggestionService(p provider.Provider, opts ...Option) *SuggestionService {
	s := &SuggestionService{
		provider: p,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckCredentials 檢查上游憑證
func (s *SuggestionService) CheckCredentials() error {
	if s.provider == nil {
		return common.NewConfigError(common.MsgMissingAPIKey)
	}
	if err := s.provider.CheckCredentials(); err != nil {
		return common.NewConfigError(common.MsgMissingAPIKey)
	}
	return nil
}

// Suggest 產生 3 筆建議；嚴格模式下違規時最多重新生成一次
func (s *SuggestionService) Suggest(ctx context.Context, req Request) ([]Suggestion, error) {
	if len([]rune(strings.TrimSpace(req.Ingredients))) < MinIngredientsLen {
		return nil, common.NewInputError(common.MsgShortIngredients)
	}
	if err := s.CheckCredentials(); err != nil {
		return nil, err
	}

	parsed := ParseUserInput(req.Ingredients)
	hints := AnalyzeRestrictions(req.Restrictions)

	common.LogDebug("解析使用者輸入",
		zap.String("request_id", req.RequestID),
		zap.Strings("allowed_keys", parsed.AllowedKeys),
		zap.String("doneness", string(parsed.Doneness)),
		zap.Strings("tags", hints.Tags),
		zap.Bool("allow_extras", req.AllowExtras),
	)

	model := s.provider.GetModel()
	nudge := ""
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		suggestions, duration, err := s.generate(ctx, req, parsed, hints, nudge, attempt)
		if err != nil {
			return nil, err
		}

		if req.AllowExtras {
			s.observer.ObserveGeneration(model, OutcomeSuccess, duration)
			return suggestions, nil
		}

		violations := ValidateStrict(suggestions, parsed.AllowedKeys)
		if len(violations) == 0 {
			s.observer.ObserveGeneration(model, OutcomeSuccess, duration)
			if attempt > 1 {
				s.observer.ObserveStrictRetry(OutcomeRecovered)
			}
			return suggestions, nil
		}

		s.observer.ObserveGeneration(model, OutcomeViolation, duration)
		s.observer.ObserveViolations(len(violations))
		common.LogWarn("嚴格模式違規",
			zap.String("request_id", req.RequestID),
			zap.Int("attempt", attempt),
			zap.Int("violations", len(violations)),
		)

		if attempt == maxAttempts {
			s.observer.ObserveStrictRetry(OutcomeFailed)
			return nil, common.NewStrictViolationError(violations)
		}
		nudge = StrictNudge(violations)
	}

	// 迴圈必定在上方返回
	return nil, common.ErrInternalError
}

// generate 呼叫上游一次並清理結果；成功的結果由呼叫端依驗證結果記錄指標
func (s *SuggestionService) generate(ctx context.Context, req Request, parsed ParsedInput, hints RestrictionHints, nudge string, attempt int) ([]Suggestion, time.Duration, error) {
	prompt := BuildPrompt(req, parsed, hints, nudge)
	model := s.provider.GetModel()

	start := time.Now()
	resp, err := s.provider.Generate(ctx, &provider.Request{
		System:          prompt.System,
		User:            prompt.User,
		SchemaName:      SchemaName,
		Schema:          ResponseSchema(),
		MaxOutputTokens: s.maxOutputTokens,
	})
	duration := time.Since(start)

	if err != nil {
		common.LogAICall(model, attempt, duration, err, req.RequestID)
		s.observer.ObserveGeneration(model, OutcomeError, duration)
		return nil, duration, upstreamFromError(err)
	}

	if resp != nil {
		common.LogAICall(model, attempt, duration, nil, req.RequestID,
			zap.String("status", resp.Status),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens),
		)
		s.observer.ObserveTokens(model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}

	suggestions, err := interpretResponse(resp)
	if err != nil {
		s.observer.ObserveGeneration(model, OutcomeError, duration)
		return nil, duration, err
	}
	return suggestions, duration, nil
}

// rawDetails 上游原始回應摘要，附在錯誤細節中
func rawDetails(resp *provider.Response, details map[string]interface{}) map[string]interface{} {
	if details == nil {
		details = map[string]interface{}{}
	}
	if len(resp.Raw) > 0 {
		details["raw"] = common.Truncate(string(resp.Raw), 500)
	}
	return details
}

// interpretResponse 將上游回應轉為 3 筆建議；不完整、拒絕、缺少輸出皆視為失敗
func interpretResponse(resp *provider.Response) ([]Suggestion, error) {
	if resp == nil {
		return nil, common.NewUpstreamError("Sem output_text na resposta.", nil, nil)
	}
	if resp.Status != provider.StatusCompleted {
		return nil, common.NewUpstreamError("Resposta incompleta do modelo.", rawDetails(resp, map[string]interface{}{"status": resp.Status}), nil)
	}
	if resp.Refusal != "" {
		return nil, common.NewUpstreamError("O modelo recusou o pedido.", rawDetails(resp, map[string]interface{}{"refusal": resp.Refusal}), nil)
	}
	if strings.TrimSpace(resp.OutputText) == "" {
		return nil, common.NewUpstreamError("Sem output_text na resposta.", rawDetails(resp, nil), nil)
	}

	suggestions, err := ParseSuggestions(resp.OutputText)
	if err != nil {
		return nil, common.NewUpstreamError(err.Error(), map[string]interface{}{
			"output_text": common.Truncate(resp.OutputText, 500),
		}, err)
	}
	if len(suggestions) < SuggestionCount {
		return nil, common.NewUpstreamError("O modelo retornou menos de 3 sugestões.", map[string]interface{}{
			"count": len(suggestions),
		}, nil)
	}
	return suggestions, nil
}

// upstreamFromError 包裝上游呼叫錯誤，保留原始回應內容
func upstreamFromError(err error) error {
	if errors.Is(err, provider.ErrMissingCredentials) {
		return common.NewConfigError(common.MsgMissingAPIKey)
	}

	var details interface{}
	var se *provider.StatusError
	if errors.As(err, &se) {
		var body interface{}
		if jsonErr := json.Unmarshal([]byte(se.Body), &body); jsonErr == nil {
			details = map[string]interface{}{"status": se.StatusCode, "body": body}
		} else {
			details = map[string]interface{}{"status": se.StatusCode, "body": common.Truncate(se.Body, 500)}
		}
	}
	return common.NewUpstreamError(err.Error(), details, err)
}
