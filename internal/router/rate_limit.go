package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/i18n"
	"github.com/theunion-shop/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

const localLimiterMaxKeys = 10000

// localLimiter 进程内令牌桶，Redis 不可用时兜底
type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	window   int
	limiters map[string]*localLimiterEntry
}

type localLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiter(rule RateLimitRule) *localLimiter {
	return &localLimiter{
		limit:    rate.Limit(float64(rule.MaxRequests) / float64(rule.WindowSeconds)),
		burst:    rule.MaxRequests,
		window:   rule.WindowSeconds,
		limiters: make(map[string]*localLimiterEntry),
	}
}

// allow 返回是否放行以及建议等待秒数
func (l *localLimiter) allow(key string, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= localLimiterMaxKeys {
			l.evictIdle(now)
		}
		entry = &localLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	if entry.limiter.AllowN(now, 1) {
		return true, 0
	}
	// 令牌补充间隔向上取整
	return false, (l.window + l.burst - 1) / l.burst
}

func (l *localLimiter) evictIdle(now time.Time) {
	idle := time.Duration(l.window) * time.Second
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(l.limiters, key)
		}
	}
	if len(l.limiters) >= localLimiterMaxKeys {
		l.limiters = make(map[string]*localLimiterEntry)
	}
}

// RateLimitMiddleware 频率限制中间件
// 优先使用 Redis 计数；未启用 Redis 或脚本执行失败时回退到进程内令牌桶。
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(rule)

	return func(c *gin.Context) {
		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		allowed, waitSeconds, err := allowByRedis(c, client, rule, key)
		if err != nil {
			if client != nil {
				logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
			}
			allowed, waitSeconds = local.allow(key, time.Now())
		}
		if !allowed {
			rejectRateLimited(c, rule, waitSeconds)
			return
		}

		c.Next()
	}
}

var errRateLimitNoClient = errors.New("rate limit redis client unavailable")

func allowByRedis(c *gin.Context, client *redis.Client, rule RateLimitRule, key string) (bool, int, error) {
	if client == nil {
		return false, 0, errRateLimitNoClient
	}
	result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit result: %v", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return false, 0, fmt.Errorf("unexpected rate limit count: %v", values[0])
	}
	if count <= int64(rule.MaxRequests) {
		return true, 0, nil
	}
	ttlSeconds, _ := toInt64(values[1])
	return false, int(ttlSeconds), nil
}

func rejectRateLimited(c *gin.Context, rule RateLimitRule, waitSeconds int) {
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
	msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
	response.Error(c, response.CodeTooManyRequests, msg)
	c.Abort()
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	default:
		return 0, false
	}
}
