package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

// fixedWindow counts requests per client in Redis. The first request of a
// window sets the key's expiry.
type fixedWindow struct {
	client *redis.Client
	config RateLimitConfig
}

func (f *fixedWindow) hit(ctx context.Context, clientID string) (int64, time.Duration, error) {
	key := fmt.Sprintf("%s:%s", f.config.KeyPrefix, clientID)

	pipe := f.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	count := incr.Val()
	remaining := ttl.Val()
	if remaining < 0 {
		if err := f.client.Expire(ctx, key, f.config.Window).Err(); err != nil {
			return count, 0, err
		}
		remaining = f.config.Window
	}
	return count, remaining, nil
}

// RateLimitMiddleware limits requests per client address using Redis. When
// Redis is unavailable requests are let through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limiter := &fixedWindow{client: redisClient, config: config}
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientAddress(r)

			count, ttl, err := limiter.hit(r.Context(), clientID)
			if err != nil {
				logger.Error("Failed to update rate limit counter",
					zap.Error(err),
					zap.String("client_id", clientID),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(config.RequestsPerWindow)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress strips the port from the remote address
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
