package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter enforces a per-student sliding-window request limit backed by redis.
// Redis being unreachable fails open so serving never depends on it.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// Result of a single limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

func New() *Limiter {
	cfg := config.Cfg.Redis
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	limit := cfg.RequestsPerMin
	if limit <= 0 {
		limit = 30
	}
	return &Limiter{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		limit:  limit,
		window: window,
	}
}

// Ping verifies redis connectivity.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Check records the request and reports whether the student is within the
// window. Sliding window over a sorted set: score = unix nanos.
func (l *Limiter) Check(ctx context.Context, studentID string) (Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)
	key := fmt.Sprintf("ratelimit:student:%s", studentID)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error(err, "%v: limit check failed, failing open", config.ModuleRedis)
		return Result{Allowed: true, Remaining: int64(l.limit)}, nil
	}

	count := countCmd.Val()
	if count >= int64(l.limit) {
		retryAfter := l.window
		oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retryAfter = time.Until(oldestAt.Add(l.window))
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	pipe = l.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error(err, "%v: limit record failed", config.ModuleRedis)
	}

	return Result{Allowed: true, Remaining: int64(l.limit) - count - 1}, nil
}
