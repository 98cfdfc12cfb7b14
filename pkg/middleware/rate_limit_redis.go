package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sitecraft/siteadmin/pkg/logger"
)

const redisKeyPrefix = "siteadmin:rl:"

// fixedWindow counts writes per key and window in Redis, so every store
// instance pointing at the same Redis enforces one shared budget.
type fixedWindow struct {
	client *redis.Client
	window time.Duration
	limit  int64
}

func newFixedWindow(client *redis.Client, rps float64, burst int, window time.Duration) *fixedWindow {
	if window < time.Second {
		window = time.Second
	}
	seconds := int64(window / time.Second)
	return &fixedWindow{
		client: client,
		window: time.Duration(seconds) * time.Second,
		limit:  int64(rps*float64(seconds)) + int64(burst),
	}
}

// hit records one request for key in the current window and reports whether
// it is still within the limit.
func (w *fixedWindow) hit(ctx context.Context, key string, now time.Time) (bool, error) {
	slot := now.Unix() / int64(w.window/time.Second)
	counter := redisKeyPrefix + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, counter)
		p.Expire(ctx, counter, w.window+time.Second)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= w.limit, nil
}

// RedisRateLimitMiddleware limits writes per subject (or client IP) with a
// fixed window of the given length, allowing rps*window+burst requests per
// window. A nil client falls back to the in-memory limiter.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	fw := newFixedWindow(client, rps, burst, window)
	retryAfter := strconv.Itoa(int(fw.window / time.Second))
	return func(c *gin.Context) {
		ok, err := fw.hit(c.Request.Context(), limiterKey(c), time.Now())
		if err != nil {
			logger.Errorf("rate limit: redis: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			return
		}
		if !ok {
			rejectRateLimited(c, "redis", retryAfter)
			return
		}
		allowRateLimited(c, "redis")
	}
}
