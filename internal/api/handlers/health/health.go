package health

import (
	"net/http"

	"receitas-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Endpoints 對外公開的端點清單
var Endpoints = []string{"/health (GET)", "/generate (POST)"}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	OK        bool     `json:"ok"`
	Name      string   `json:"name"`
	Endpoints []string `json:"endpoints"`
	Path      string   `json:"path"`
}

// Handler 健康檢查處理器
func Handler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		common.LogDebug("Health check request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path),
		)

		c.JSON(http.StatusOK, HealthResponse{
			OK:        true,
			Name:      name,
			Endpoints: Endpoints,
			Path:      c.Request.URL.Path,
		})
	}
}
