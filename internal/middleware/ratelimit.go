package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/cache"
	"github.com/memora/backend/internal/logger"
	"go.uber.org/zap"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  100,
		Window: time.Minute,
	}
}

// UploadRateLimitConfig returns stricter limits for upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:  20,
		Window: time.Minute,
	}
}

// RateLimit returns a middleware that prefers the shared Redis counter
// and falls back to a per-process token bucket when Redis is absent.
// The Redis path keeps limits fair across multiple instances.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	fallback := newTokenBucketLimiter(config)

	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			fallback(c)
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := redisClient.Incr(ctx, key)
		if err != nil {
			logger.Log.Warn("Rate limit counter failed, using in-process fallback",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			fallback(c)
			return
		}

		// First hit in this window starts the clock
		if count == 1 {
			if err := redisClient.Expire(ctx, key, config.Window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
			}
		}

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			rejectRateLimited(c, int(config.Window.Seconds()), config.Limit)
			return
		}

		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, retryAfter, limit int) {
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
	})
}

// tokenBucket refills continuously at limit/window
type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(maxTokens, refillRate float64) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *tokenBucket) retryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// newTokenBucketLimiter builds the in-process per-IP limiter used when
// Redis is unavailable
func newTokenBucketLimiter(config RateLimitConfig) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*tokenBucket)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		bucket, exists := buckets[ip]
		if !exists {
			refillRate := float64(config.Limit) / config.Window.Seconds()
			bucket = newTokenBucket(float64(config.Limit), refillRate)
			buckets[ip] = bucket
		}
		mu.Unlock()

		if !bucket.allow() {
			rejectRateLimited(c, bucket.retryAfter(), config.Limit)
			return
		}
		c.Next()
	}
}
