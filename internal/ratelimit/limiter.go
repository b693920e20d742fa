package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LimitResult 限流判斷結果
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter 以 Redis sorted set 實作的滑動視窗限流
type Limiter struct {
	rdb    *redis.Client
	prefix string
}

// NewLimiter 建立限流器；rdb 為 nil 時一律放行
func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, prefix: "receitas:rl:"}
}

// Enabled 是否有 Redis 後端
func (l *Limiter) Enabled() bool {
	return l != nil && l.rdb != nil
}

// KEYS[1] = sorted set key
// ARGV[1] = 視窗起點 (unix micro)
// ARGV[2] = 現在時間 (unix micro)
// ARGV[3] = 上限
// ARGV[4] = key TTL 秒數
// 回傳 [目前數量, 1=允許/0=拒絕]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

// Check 滑動視窗檢查；Redis 錯誤時結果仍為放行，並回傳錯誤供呼叫端記錄
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error) {
	now := time.Now()
	if !l.Enabled() {
		return LimitResult{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	windowStart := now.Add(-window).UnixMicro()
	ttlSecs := int64(window.Seconds()) + 1
	redisKey := fmt.Sprintf("%s%s", l.prefix, key)

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{redisKey},
		windowStart, now.UnixMicro(), limit, ttlSecs,
	).Int64Slice()
	if err == nil && len(result) != 2 {
		err = fmt.Errorf("unexpected sliding window reply: %v", result)
	}
	if err != nil {
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, fmt.Errorf("redis rate limit check: %w", err)
	}

	count := result[0]
	allowed := result[1] == 1
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = window / 2
	}

	return LimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    now.Add(window),
		RetryAfter: retryAfter,
	}, nil
}
