package middleware

import (
	"strconv"
	"time"

	"receitas-ai/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// Metrics 記錄請求數與延遲；未匹配的路由統一標記為 unmatched
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
