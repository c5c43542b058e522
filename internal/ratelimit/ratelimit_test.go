package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/gamepasses/internal/config"
	"github.com/smallbiznis/gamepasses/internal/ratelimit/ratelimittest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func enabledConfig() config.RateLimitConfig {
	return config.RateLimitConfig{Enabled: true, LookupRate: 2, LookupBurst: 5, LookupLockTTL: time.Second}
}

func TestNewLookupLimiterDisabled(t *testing.T) {
	limiter, err := NewLookupLimiter(nil, config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowClient(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, ok, err := limiter.TryLockUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, limiter.ReleaseUser(context.Background(), 1, ""))
}

func TestNewLookupLimiterRequiresAddr(t *testing.T) {
	cfg := config.Config{RateLimit: enabledConfig()}
	_, err := NewLookupLimiter(nil, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestLookupLimiterRejectsNonPositiveRate(t *testing.T) {
	cfg := enabledConfig()
	cfg.LookupRate = 0
	_, err := NewLookupLimiterWithClient(ratelimittest.NewRedis(), cfg)
	assert.Error(t, err)
}

func TestLookupLimiterRequiresClient(t *testing.T) {
	_, err := NewLookupLimiterWithClient(nil, enabledConfig())
	assert.Error(t, err)
}

func TestLookupLimiterPropagatesRedisErrors(t *testing.T) {
	fake := ratelimittest.NewRedis()
	fake.Err = errors.New("redis down")
	limiter, err := NewLookupLimiterWithClient(fake, enabledConfig())
	require.NoError(t, err)

	_, err = limiter.AllowClient(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	_, _, err = limiter.TryLockUser(context.Background(), 1)
	assert.Error(t, err)
}

func TestAllowClientAllowed(t *testing.T) {
	fake := ratelimittest.NewRedis(int64(1), int64(4), int64(1700000000000))
	limiter, err := NewLookupLimiterWithClient(fake, enabledConfig())
	require.NoError(t, err)

	res, err := limiter.AllowClient(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)
	assert.Equal(t, []string{"gamepasses:lookup:client:10.0.0.1"}, fake.BucketKeys())
}

func TestAllowClientDeniedReportsRetryAfter(t *testing.T) {
	fake := ratelimittest.NewRedis(int64(0), int64(0), int64(1700000000000))
	limiter, err := NewLookupLimiterWithClient(fake, enabledConfig())
	require.NoError(t, err)

	res, err := limiter.AllowClient(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, []string{"gamepasses:lookup:client:unknown"}, fake.BucketKeys())
}

func TestUserLockIsExclusiveUntilReleased(t *testing.T) {
	fake := ratelimittest.NewRedis()
	limiter, err := NewLookupLimiterWithClient(fake, enabledConfig())
	require.NoError(t, err)
	ctx := context.Background()

	token, ok, err := limiter.TryLockUser(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = limiter.TryLockUser(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, limiter.ReleaseUser(ctx, 42, token))

	_, ok, err = limiter.TryLockUser(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenBucketValidatesInput(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)

	bucket := NewTokenBucket(ratelimittest.NewRedis())
	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(1, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}
