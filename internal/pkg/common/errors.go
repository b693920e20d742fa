package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	OK      bool        `json:"ok"`
	Error   string      `json:"error"`             // 錯誤信息
	Details interface{} `json:"details,omitempty"` // 詳細信息
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string      // 錯誤代碼
	Message string      // 對外錯誤信息
	Status  int         // HTTP 狀態碼
	Details interface{} // 對外詳細信息
	Err     error       // 原始錯誤
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Response 轉為 API 錯誤響應
func (e *CustomError) Response() ErrorResponse {
	return ErrorResponse{OK: false, Error: e.Message, Details: e.Details}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithDetails 附加對外詳細信息
func (e *CustomError) WithDetails(details interface{}) *CustomError {
	cp := *e
	cp.Details = details
	return &cp
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeInvalidJSON      = "INVALID_JSON"       // 400
	ErrCodeStrictViolation  = "STRICT_VIOLATION"   // 400
	ErrCodeWrongMethod      = "WRONG_METHOD"       // 400
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"  // 413
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"  // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError  = "INTERNAL_ERROR"  // 500
	ErrCodeConfigError    = "CONFIG_ERROR"    // 500
	ErrCodeUpstreamError  = "UPSTREAM_ERROR"  // 500
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT" // 504
)

// 對外錯誤訊息
const (
	MsgInvalidJSON      = "JSON inválido no body."
	MsgShortIngredients = "ingredients é obrigatório (mínimo 3 caracteres)."
	MsgMissingAPIKey    = "OPENAI_API_KEY não configurada no servidor."
	MsgUpstream         = "OpenAI error"
	MsgStrictViolation  = "A IA insistiu em adicionar ingredientes extras mesmo no modo estrito. Tente novamente ou ative 'Permitir extras'."
	MsgWrongMethod      = "Use POST em /generate"
	MsgNotFound         = "Not found"
)

// 預定義錯誤
var (
	ErrInvalidJSON     = NewError(ErrCodeInvalidJSON, MsgInvalidJSON, http.StatusBadRequest, nil)
	ErrWrongMethod     = NewError(ErrCodeWrongMethod, MsgWrongMethod, http.StatusBadRequest, nil)
	ErrRequestTooLarge = NewError(ErrCodeRequestTooLarge, "Body muito grande.", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "Muitas requisições. Tente novamente em instantes.", http.StatusTooManyRequests, nil)
	ErrDuplicate       = NewError(ErrCodeDuplicateRequest, "Requisição duplicada. Aguarde a anterior terminar.", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "Erro interno.", http.StatusInternalServerError, nil)
	ErrGatewayTimeout  = NewError(ErrCodeGatewayTimeout, "Tempo esgotado ao gerar sugestões.", http.StatusGatewayTimeout, nil)
)

// NewInputError 輸入驗證錯誤 (400)
func NewInputError(message string) *CustomError {
	return NewError(ErrCodeInvalidRequest, message, http.StatusBadRequest, nil)
}

// NewConfigError 伺服器設定錯誤 (500)
func NewConfigError(message string) *CustomError {
	return NewError(ErrCodeConfigError, message, http.StatusInternalServerError, nil)
}

// NewUpstreamError 上游模型錯誤 (500)，details 為 {message, details}
func NewUpstreamError(message string, details interface{}, err error) *CustomError {
	e := NewError(ErrCodeUpstreamError, MsgUpstream, http.StatusInternalServerError, err)
	e.Details = map[string]interface{}{
		"message": message,
		"details": details,
	}
	return e
}

// NewStrictViolationError 嚴格模式重試後仍違規 (400)
func NewStrictViolationError(violations []string) *CustomError {
	if violations == nil {
		violations = []string{}
	}
	e := NewError(ErrCodeStrictViolation, MsgStrictViolation, http.StatusBadRequest, nil)
	e.Details = map[string]interface{}{"violations": violations}
	return e
}

// AsCustomError 取出錯誤鏈中的 CustomError
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
