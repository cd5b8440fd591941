package ports

import (
	"context"
	"time"
)

// DefaultLockTTL bounds how long a crashed holder can keep a run locked.
const DefaultLockTTL = 30 * time.Second

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a run across replicas sharing one checkpoint store.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned UnlockFunc MUST be called to release it; the TTL is a safety net.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
