package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter per key. When Redis is down it
// lets requests through; throttling is protection, not a correctness rule.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: int64(limit), window: window}
}

func (r *RedisRateLimiter) Allow(c *gin.Context, key string) bool {
	if r.client == nil {
		return true
	}
	ctx := c.Request.Context()
	bucket := fmt.Sprintf("fursa:rate:%s:%d", key, time.Now().Unix()/int64(r.window.Seconds()))
	n, err := r.client.Incr(ctx, bucket).Result()
	if err != nil {
		log.Printf("[ratelimit] redis unavailable, allowing request: %v", err)
		return true
	}
	if n == 1 {
		r.client.Expire(ctx, bucket, r.window)
	}
	return n <= r.limit
}

// RateLimit limits by client IP.
func RateLimit(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c, c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
