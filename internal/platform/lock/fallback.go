package lock

import (
	"context"
	"errors"

	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

// Fallback prefers the primary locker and drops to the in-process one when
// the primary errors for reasons other than contention or cancellation.
// Multi-replica deployments lose cross-process exclusion while degraded.
type Fallback struct {
	log       *logger.Logger
	primary   Locker
	secondary Locker
}

func NewFallback(log *logger.Logger, primary Locker, secondary Locker) *Fallback {
	return &Fallback{log: log.With("service", "WorkshopLocker"), primary: primary, secondary: secondary}
}

func (f *Fallback) Backend() string { return f.primary.Backend() + "+" + f.secondary.Backend() }

func (f *Fallback) Acquire(ctx context.Context, key string) (func(), error) {
	metrics := observability.Current()
	release, err := f.primary.Acquire(ctx, key)
	if err == nil {
		metrics.IncLockAcquire(f.primary.Backend(), "ok")
		return release, nil
	}
	if errors.Is(err, ErrNotAcquired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		metrics.IncLockAcquire(f.primary.Backend(), "contended")
		return nil, err
	}
	f.log.Warn("primary workshop lock unavailable; using in-process lock", "key", key, "error", err)
	metrics.IncLockAcquire(f.primary.Backend(), "error")
	release, err = f.secondary.Acquire(ctx, key)
	if err != nil {
		metrics.IncLockAcquire(f.secondary.Backend(), "contended")
		return nil, err
	}
	metrics.IncLockAcquire(f.secondary.Backend(), "ok")
	return release, nil
}
