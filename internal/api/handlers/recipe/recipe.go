package recipe

import (
	"context"
	"errors"
	"net/http"
	"time"

	recipeService "receitas-ai/internal/core/recipe"
	"receitas-ai/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Suggester 建議服務
type Suggester interface {
	CheckCredentials() error
	Suggest(ctx context.Context, req recipeService.Request) ([]recipeService.Suggestion, error)
}

// GenerateResponse 成功回應
type GenerateResponse struct {
	OK          bool                       `json:"ok"`
	Suggestions []recipeService.Suggestion `json:"suggestions"`
}

// Handler 食譜建議處理器
type Handler struct {
	suggester Suggester
}

// NewHandler 創建處理器
func NewHandler(suggester Suggester) *Handler {
	return &Handler{suggester: suggester}
}

// HandleGenerate 處理 POST /generate：依食材產生 3 筆建議
func (h *Handler) HandleGenerate(c *gin.Context) {
	start := time.Now()
	requestID := requestid.Get(c)
	if requestID == "" {
		requestID = common.GenerateUUID()
	}

	common.LogInfo("開始處理食譜建議請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	if err := h.suggester.CheckCredentials(); err != nil {
		respondError(c, requestID, err)
		return
	}

	var body GenerateRequest
	if err := common.DecodeJSON(c.Request.Body, &body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, requestID, common.ErrRequestTooLarge)
			return
		}
		common.LogWarn("請求體解析失敗",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		respondError(c, requestID, common.ErrInvalidJSON)
		return
	}

	req := body.toServiceRequest(requestID)
	if len([]rune(req.Ingredients)) < recipeService.MinIngredientsLen {
		respondError(c, requestID, common.NewInputError(common.MsgShortIngredients))
		return
	}

	suggestions, err := h.suggester.Suggest(c.Request.Context(), req)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	common.LogInfo("食譜建議完成",
		zap.String("request_id", requestID),
		zap.Int("suggestions", len(suggestions)),
		zap.Bool("allow_extras", req.AllowExtras),
		zap.Duration("duration", time.Since(start)),
	)

	c.JSON(http.StatusOK, GenerateResponse{OK: true, Suggestions: suggestions})
}

// respondError 依錯誤類型輸出 {ok:false,error,details?}
func respondError(c *gin.Context, requestID string, err error) {
	ce, ok := common.AsCustomError(err)
	if !ok {
		ce = common.NewUpstreamError(err.Error(), nil, err)
	}

	// 逾時由 Timeout 中間件回應
	if errors.Is(err, context.DeadlineExceeded) && c.Request.Context().Err() != nil {
		common.LogWarn("請求逾時",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.Abort()
		return
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("code", ce.Code),
		zap.Int("status", ce.Status),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("食譜建議失敗", fields...)
	} else {
		common.LogWarn("食譜建議請求無效", fields...)
	}

	c.AbortWithStatusJSON(ce.Status, ce.Response())
}
