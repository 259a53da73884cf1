package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/edgeflowers/newsletter/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitWindow  = time.Minute
	visitorIdleTTL   = 15 * time.Minute
	visitorSweepEach = 2 * time.Minute
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit enforces limiter per client IP. Limiter errors let the request
// through.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}

// RedisLimiter is a fixed one-minute window counter shared across instances.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  int64(perMinute),
		prefix: "newsletter:rate_limit",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	window := now.Truncate(rateLimitWindow)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, window.Unix())

	// The TTL is refreshed on every hit so a failed expire is retried.
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, rateLimitWindow+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit window %s: %w", redisKey, err)
	}
	count := incr.Val()
	if count > l.limit {
		return false, window.Add(rateLimitWindow).Sub(now), nil
	}
	return true, 0, nil
}

// MemoryLimiter keeps a token bucket per key in process memory.
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     time.Duration
	burst     int
	lastSweep time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &MemoryLimiter{
		visitors:  make(map[string]*visitor),
		every:     rateLimitWindow / time.Duration(perMinute),
		burst:     perMinute,
		lastSweep: time.Now(),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > visitorSweepEach {
		cutoff := now.Add(-visitorIdleTTL)
		for k, v := range l.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	if v.lim.AllowN(now, 1) {
		return true, 0, nil
	}
	return false, l.every, nil
}
