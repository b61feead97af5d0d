package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auction-house/services/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		return "rl:ip:" + ip
	}
}

// KeyByUserID limits authenticated callers per user and anonymous ones per IP
func KeyByUserID() KeyFunc {
	byIP := KeyByIP()
	return func(c *gin.Context) string {
		if uid := helpers.CurrentUserID(c); uid != "" {
			return "rl:user:" + uid
		}
		return "rl:user:anon:" + byIP(c)
	}
}

// atomic INCR, setting the window on the first hit
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// AllowFunc returns true to bypass the limit
type AllowFunc func(*gin.Context) bool

// RateLimit counts requests per key in a fixed window kept in Redis.
// A nil client disables limiting; Redis errors fail open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := keyFn(c)

		count, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int()
		if err != nil {
			utils.Warn("rate limiter unavailable, allowing request", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		ttl, err := rdb.PTTL(ctx, key).Result()
		if err != nil {
			utils.Warn("rate limiter could not read window ttl", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
		resetSec := 0
		if ttl > 0 {
			resetSec = int((ttl + time.Second - 1) / time.Second)
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > limit {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			utils.JSONError(c, http.StatusTooManyRequests, errors.New("rate limit exceeded"), "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
