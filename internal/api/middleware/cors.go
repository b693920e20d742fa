package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS 每個回應都帶上寬鬆的 CORS 標頭；OPTIONS 直接回 204
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", "content-type,authorization")
		header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
