package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired means the lock stayed held by someone else until the wait budget ran out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work on a key (one workshop id) across requests.
type Locker interface {
	// Acquire blocks until the key is held, ctx is done, or the wait budget is spent.
	// The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
	Backend() string
}

type Options struct {
	// TTL bounds how long a crashed holder keeps the key in redis.
	TTL time.Duration
	// Wait bounds how long Acquire retries before ErrNotAcquired.
	Wait time.Duration
	// Poll is the retry interval while waiting.
	Poll time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 10 * time.Second
	}
	if o.Poll <= 0 {
		o.Poll = 50 * time.Millisecond
	}
	return o
}
