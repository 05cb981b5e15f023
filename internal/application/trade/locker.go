package trade

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Locker serializes operations on one document across processes.
// Obtain returns an error matching shared.ErrConcurrencyConflict when the
// key stays held past the implementation's retry budget.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}

// Lock is a held key
type Lock interface {
	Release(ctx context.Context) error
}

const releaseTimeout = 5 * time.Second

func draftLockKey(id string) string {
	return "pharmacy:lock:draft:" + id
}

func returnLockKey(typ, ref string) string {
	return "pharmacy:lock:return:" + typ + ":" + ref
}

// withLock runs fn while holding key. Without a locker fn runs unguarded and
// the database row locks are the only serialization.
func (e *engine) withLock(ctx context.Context, key string, fn func() error) error {
	if e.locker == nil {
		return fn()
	}
	lock, err := e.locker.Obtain(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			e.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}
