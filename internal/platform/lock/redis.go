package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

// releaseScript deletes the key only when it still carries our token, so a
// holder whose TTL lapsed cannot free someone else's lock.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	opts   Options
}

func NewRedis(log *logger.Logger, rdb goredis.UniversalClient, prefix string, opts Options) (*Redis, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if prefix == "" {
		prefix = "workshop:lock:"
	}
	return &Redis{log: log.With("service", "RedisLocker"), rdb: rdb, prefix: prefix, opts: opts.withDefaults()}, nil
}

// Dial connects and pings so a bad address fails at startup.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.Wait)
	for {
		ok, err := r.rdb.SetNX(ctx, fullKey, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", fullKey, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		timer := time.NewTimer(r.opts.Poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release must run even when the request ctx is already canceled
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, r.rdb, []string{fullKey}, token).Err(); err != nil {
				r.log.Warn("workshop lock release failed", "key", fullKey, "error", err)
			}
		})
	}, nil
}
