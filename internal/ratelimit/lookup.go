package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gamepasses/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyLookupClient = "gamepasses:lookup:client:%s"
	keyLookupUser   = "gamepasses:lookup:user:%d"
)

// Client is the redis surface the lookup limiter needs.
type Client interface {
	lockClient
	Close() error
}

// LookupLimiter throttles user lookups per client and keeps at most one
// aggregation per user in flight.
type LookupLimiter struct {
	client  Client
	bucket  *TokenBucket
	locker  *Locker
	rate    float64
	burst   int
	lockTTL time.Duration
}

// NewLookupLimiter returns nil when rate limiting is disabled.
func NewLookupLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*LookupLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})

	limiter, err := NewLookupLimiterWithClient(client, limitCfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("rate limit redis unreachable", zap.String("addr", addr), zap.Error(err))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return limiter, nil
}

// NewLookupLimiterWithClient builds an enabled limiter over an existing client.
func NewLookupLimiterWithClient(client Client, cfg config.RateLimitConfig) (*LookupLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limit redis client is required")
	}
	if cfg.LookupRate <= 0 || cfg.LookupBurst <= 0 {
		return nil, errors.New("lookup rate limit must be positive")
	}
	lockTTL := cfg.LookupLockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &LookupLimiter{
		client:  client,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    cfg.LookupRate,
		burst:   cfg.LookupBurst,
		lockTTL: lockTTL,
	}, nil
}

func (l *LookupLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowClient takes one token from the caller's bucket.
func (l *LookupLimiter) AllowClient(ctx context.Context, clientKey string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLookupClient, clientKey), l.rate, l.burst)
}

// TryLockUser marks an aggregation for userID as in flight.
func (l *LookupLimiter) TryLockUser(ctx context.Context, userID int64) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyLookupUser, userID), l.lockTTL)
}

func (l *LookupLimiter) ReleaseUser(ctx context.Context, userID int64, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyLookupUser, userID), token)
}
