package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"mentorgraph.org/internal/obs"
)

// Limiter decides whether the caller identified by key may proceed. retryAfter is a hint
// for rejected calls.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// RateLimit rejects requests over the limit with 429. Limiter errors fail open.
func RateLimit(next http.Handler, limiter Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		if key == "" {
			key = "unknown"
		}
		ok, retry, err := limiter.Allow(r.Context(), key)
		if err != nil {
			obs.LoggerFromContext(r.Context()).WithError(err).Warn("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LocalLimiter is a token bucket per key held in process memory.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     int
	perSecond int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLocalLimiter returns a limiter allowing perSecond sustained calls with burst headroom.
func NewLocalLimiter(burst, perSecond int) *LocalLimiter {
	return &LocalLimiter{
		buckets:   make(map[string]*bucket),
		burst:     burst,
		perSecond: perSecond,
		ttl:       5 * time.Minute,
		now:       time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	if b.lim.AllowN(now, 1) {
		return true, 0, nil
	}
	return false, time.Second / time.Duration(max(l.perSecond, 1)), nil
}

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit calls per window for each key.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window, prefix: "mentorgraph:ratelimit"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, 0, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true, 0, fmt.Errorf("redis expire: %w", err)
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// Keys without an expiry never reset.
		_ = l.client.Expire(ctx, k, l.window).Err()
		ttl = l.window
	}
	return false, ttl, nil
}

// Ping checks Redis connectivity.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
