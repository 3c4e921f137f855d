// Package lock provides per-key locking for read-modify-write sequences on a
// single record, such as applying a round to one tournament entry.
package lock

import (
	"context"
	"sync"
)

// keyMutex is a channel-backed mutex so that waiting can be abandoned when a
// context is done. refs counts holders and waiters; the entry is removed from
// the map when it drops to zero.
type keyMutex struct {
	ch   chan struct{}
	refs int
}

// KeyLock serializes work per key while letting different keys proceed in parallel.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
	pool  sync.Pool
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*keyMutex),
		pool: sync.Pool{
			New: func() any {
				return &keyMutex{ch: make(chan struct{}, 1)}
			},
		},
	}
}

// acquire returns the mutex for key with its reference count incremented.
func (kl *KeyLock) acquire(key string) *keyMutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m, ok := kl.locks[key]
	if !ok {
		m = kl.pool.Get().(*keyMutex)
		kl.locks[key] = m
	}
	m.refs++
	return m
}

// release drops one reference and recycles the mutex when nobody uses it.
func (kl *KeyLock) release(key string, m *keyMutex) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(kl.locks, key)
		kl.pool.Put(m)
	}
}

// Lock acquires the lock for key, blocking until it is available.
func (kl *KeyLock) Lock(key string) {
	m := kl.acquire(key)
	m.ch <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a key that is not locked is a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-m.ch:
		kl.release(key, m)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyLock) TryLock(key string) bool {
	m := kl.acquire(key)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		kl.release(key, m)
		return false
	}
}

// LockContext acquires the lock for key or gives up when ctx is done.
func (kl *KeyLock) LockContext(ctx context.Context, key string) error {
	m := kl.acquire(key)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.release(key, m)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// WithLock executes a function while holding the lock for key.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes a function while holding the lock for key,
// giving up if ctx is done before the lock is acquired.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, fn func() error) error {
	if err := kl.LockContext(ctx, key); err != nil {
		return err
	}
	defer kl.Unlock(key)
	return fn()
}

// IsLocked checks if key is currently held.
// Note: This is a point-in-time check and may change immediately after.
func (kl *KeyLock) IsLocked(key string) bool {
	kl.mu.Lock()
	m, ok := kl.locks[key]
	kl.mu.Unlock()
	return ok && len(m.ch) > 0
}

// Len returns the number of keys currently held or waited on.
func (kl *KeyLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
