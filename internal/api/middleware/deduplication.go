package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"receitas-ai/internal/infrastructure/config"
	"receitas-ai/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sweepThreshold 快取超過此數量時順帶清除過期項目
const sweepThreshold = 1024

// requestCache 請求指紋與最後出現時間
type requestCache struct {
	sync.Mutex
	requests map[string]time.Time
	window   time.Duration
}

// seen 記錄指紋，若在視窗內已出現過則回傳 true
func (rc *requestCache) seen(fingerprint string, now time.Time) bool {
	rc.Lock()
	defer rc.Unlock()

	if last, ok := rc.requests[fingerprint]; ok && now.Sub(last) <= rc.window {
		return true
	}

	if len(rc.requests) >= sweepThreshold {
		for k, t := range rc.requests {
			if now.Sub(t) > rc.window {
				delete(rc.requests, k)
			}
		}
	}
	rc.requests[fingerprint] = now
	return false
}

// Deduplication 請求去重中間件：同一路徑、同一請求體在視窗內重送即拒絕
func Deduplication(cfg config.DedupConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	cache := &requestCache{requests: make(map[string]time.Time), window: window}

	return func(c *gin.Context) {
		// 計算請求體哈希
		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.Next()
				return
			}

			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		fingerprint := c.ClientIP() + ":" + c.Request.Method + ":" + c.Request.URL.Path
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		if cache.seen(fingerprint, time.Now()) {
			common.LogInfo("Duplicate request rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(common.ErrDuplicate.Status, common.ErrDuplicate.Response())
			return
		}

		c.Next()
	}
}
