package rankroles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Second

// Locker hands out per-member exclusive leases for reconciliation runs.
type Locker interface {
	Acquire(ctx context.Context, memberID string) (Lease, bool, error)
}

// Lease is a held lock; Release is safe to call once the lease expired.
type Lease interface {
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, expected string) (bool, error)
}

// RedisLocker implements Locker using SETNX with a TTL. Release is a
// compare-and-delete so an expired lease cannot free its successor's lock.
type RedisLocker struct {
	client redisStore
	keyFn  func(memberID string) string
	ttl    time.Duration
}

// NewRedisLocker constructs a Redis-backed locker. keyFn maps a member id to its lock key.
func NewRedisLocker(client redisStore, keyFn func(memberID string) string, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if keyFn == nil {
		return nil, errors.New("lock key builder is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, keyFn: keyFn, ttl: ttl}, nil
}

// Acquire tries to own the member's lock for the configured TTL.
func (l *RedisLocker) Acquire(ctx context.Context, memberID string) (Lease, bool, error) {
	key := l.keyFn(memberID)
	if key == "" {
		return nil, false, errors.New("lock key is required")
	}
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: l.client, key: key, owner: owner}, true, nil
}

type redisLease struct {
	client redisStore
	key    string
	owner  string
}

// Release frees the lock only if the owner value still matches.
func (l *redisLease) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.DelIfValue(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
