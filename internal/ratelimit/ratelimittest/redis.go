// Package ratelimittest provides an in-memory stand-in for the redis client
// used by the lookup limiter.
package ratelimittest

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis answers token bucket scripts with Reply and keeps lock keys in memory.
// When Err is set every call fails with it.
type Redis struct {
	mu    sync.Mutex
	Reply []interface{}
	Err   error
	Keys  []string
	locks map[string]string
}

// NewRedis returns a fake whose token bucket script always yields reply,
// i.e. {allowed, remaining, ts_millis}.
func NewRedis(reply ...interface{}) *Redis {
	return &Redis{Reply: reply, locks: map[string]string{}}
}

// Held reports whether key is currently locked.
func (r *Redis) Held(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[key]
	return ok
}

// BucketKeys returns the keys passed to scripts so far.
func (r *Redis) BucketKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Keys...)
}

func (r *Redis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.run(keys, args)
}

func (r *Redis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.run(keys, args)
}

func (r *Redis) EvalRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.run(keys, args)
}

func (r *Redis) EvalShaRO(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.run(keys, args)
}

func (r *Redis) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, r.Err)
}

func (r *Redis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", r.Err)
}

func (r *Redis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return redis.NewBoolResult(false, r.Err)
	}
	if _, held := r.locks[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	token, _ := value.(string)
	r.locks[key] = token
	return redis.NewBoolResult(true, nil)
}

func (r *Redis) Close() error { return nil }

func (r *Redis) run(keys []string, args []interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return redis.NewCmdResult(nil, r.Err)
	}
	if len(args) == 1 {
		// token-checked lock release
		if len(keys) > 0 && r.locks[keys[0]] == args[0] {
			delete(r.locks, keys[0])
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	r.Keys = append(r.Keys, keys...)
	return redis.NewCmdResult(r.Reply, nil)
}
