package api

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps a token bucket per client in process memory. It
// suits a single API instance.
type MemoryLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[string]*rate.Limiter
}

// NewMemoryLimiter allows perMinute requests per client, refilled evenly
// across the minute.
func NewMemoryLimiter(perMinute int) *MemoryLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &MemoryLimiter{perMin: perMinute, limiters: make(map[string]*rate.Limiter)}
}

// Allow consumes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

// RedisLimiter counts requests in fixed one-minute windows shared by every
// API instance.
type RedisLimiter struct {
	client *redis.Client
	perMin int
	now    func() time.Time
}

// NewRedisLimiter allows perMinute requests per client per clock minute.
func NewRedisLimiter(client *redis.Client, perMinute int) *RedisLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RedisLimiter{client: client, perMin: perMinute, now: time.Now}
}

// Allow increments key's counter for the current minute.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := l.now().Unix() / 60
	k := "aidiscovery:ratelimit:" + key + ":" + strconv.FormatInt(window, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, time.Minute+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, eris.Wrapf(err, "api: rate limit %s", key)
	}
	return incr.Val() <= int64(l.perMin), nil
}
