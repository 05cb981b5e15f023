package lock

import (
	"context"
	"sync"
	"time"

	apptrade "github.com/hospital/pharmacy/internal/application/trade"
	"github.com/hospital/pharmacy/internal/infrastructure/config"
)

// LocalLocker is an in-process keyed lock for single-instance deployments.
// It honours the same retry budget as RedisLocker.
type LocalLocker struct {
	mu         sync.Mutex
	held       map[string]struct{}
	retryCount int
	retryDelay time.Duration
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker(cfg config.LockConfig) *LocalLocker {
	return &LocalLocker{
		held:       make(map[string]struct{}),
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}
}

// Obtain takes key or fails with a concurrency conflict once retries run out
func (l *LocalLocker) Obtain(ctx context.Context, key string) (apptrade.Lock, error) {
	for attempt := 0; ; attempt++ {
		if l.tryAcquire(key) {
			return &localLock{owner: l, key: key}, nil
		}
		if attempt >= l.retryCount {
			return nil, busy(key)
		}
		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Held reports whether key is currently locked
func (l *LocalLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

func (l *LocalLocker) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

type localLock struct {
	owner *LocalLocker
	key   string
	once  sync.Once
}

func (l *localLock) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.key)
		l.owner.mu.Unlock()
	})
	return nil
}

var _ apptrade.Locker = (*LocalLocker)(nil)
