package middleware

import (
	"strconv"
	"sync"
	"time"

	"receitas-ai/internal/infrastructure/config"
	"receitas-ai/internal/pkg/common"
	"receitas-ai/internal/ratelimit"
	"receitas-ai/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 限流後端名稱
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// RateLimiter 單一用戶端的令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   requests,
		capacity: requests,
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	newTokens := int(now.Sub(rl.lastTime).Seconds() * rl.rate)
	if newTokens > 0 {
		rl.tokens = min(rl.capacity, rl.tokens+newTokens)
		rl.lastTime = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}

// bucketSweepThreshold 分桶數超過此值時順帶清除閒置的桶
const bucketSweepThreshold = 1024

// idle 超過 window 未使用的桶已回滿，可直接丟棄
func (rl *RateLimiter) idle(now time.Time, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return now.Sub(rl.lastTime) > window
}

// clientBuckets 依用戶端 IP 分桶
type clientBuckets struct {
	mu       sync.Mutex
	buckets  map[string]*RateLimiter
	requests int
	window   time.Duration
}

func (cb *clientBuckets) get(key string) *RateLimiter {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	rl, ok := cb.buckets[key]
	if ok {
		return rl
	}

	if len(cb.buckets) >= bucketSweepThreshold {
		now := time.Now()
		for k, b := range cb.buckets {
			if b.idle(now, cb.window) {
				delete(cb.buckets, k)
			}
		}
	}

	rl = NewRateLimiter(cb.requests, cb.window)
	cb.buckets[key] = rl
	return rl
}

// RateLimit 限流中間件；有 Redis 時使用滑動視窗，否則使用本機令牌桶
func RateLimit(cfg config.RateLimitConfig, limiter *ratelimit.Limiter, metrics *telemetry.Metrics) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	local := &clientBuckets{
		buckets:  make(map[string]*RateLimiter),
		requests: cfg.Requests,
		window:   cfg.Window,
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		backend := BackendMemory
		allowed := true
		retryAfter := cfg.Window

		if limiter.Enabled() {
			backend = BackendRedis
			res, err := limiter.Check(c.Request.Context(), key, int64(cfg.Requests), cfg.Window)
			if err != nil {
				common.LogWarn("Redis 限流檢查失敗，放行請求",
					zap.String("ip", key),
					zap.Error(err),
				)
			}
			allowed = res.Allowed
			if res.RetryAfter > 0 {
				retryAfter = res.RetryAfter
			}
		} else {
			allowed = local.get(key).Allow()
		}

		if allowed {
			c.Next()
			return
		}

		common.LogInfo("Rate limit exceeded",
			zap.String("ip", key),
			zap.String("path", c.Request.URL.Path),
			zap.String("backend", backend),
		)
		if metrics != nil {
			metrics.RecordRateLimited(backend)
		}

		secs := int(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		e := common.ErrTooManyRequests.WithDetails(gin.H{"retry_after": secs})
		c.AbortWithStatusJSON(e.Status, e.Response())
	}
}
