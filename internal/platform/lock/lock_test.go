package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal(Options{Wait: time.Second})
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "ws-1")
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("max concurrent holders: want=1 got=%d", maxInside)
	}
	if l.size() != 0 {
		t.Fatalf("slots leaked: got=%d", l.size())
	}
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal(Options{Wait: 50 * time.Millisecond})
	r1, err := l.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer r1()
	r2, err := l.Acquire(context.Background(), "b")
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	r2()
}

func TestLocalTimesOutWhenHeld(t *testing.T) {
	l := NewLocal(Options{Wait: 20 * time.Millisecond})
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(context.Background(), "k"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("second Acquire: want ErrNotAcquired got=%v", err)
	}
	release()
	release()
	if l.size() != 0 {
		t.Fatalf("slots leaked: got=%d", l.size())
	}
}

type brokenLocker struct{ calls int }

func (b *brokenLocker) Backend() string { return "broken" }
func (b *brokenLocker) Acquire(ctx context.Context, key string) (func(), error) {
	b.calls++
	return nil, errors.New("connection refused")
}

func TestFallbackUsesSecondaryOnPrimaryError(t *testing.T) {
	primary := &brokenLocker{}
	f := NewFallback(logger.Nop(), primary, NewLocal(Options{}))
	release, err := f.Acquire(context.Background(), "ws")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	if primary.calls != 1 {
		t.Fatalf("primary calls: want=1 got=%d", primary.calls)
	}
}
