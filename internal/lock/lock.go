// Package lock serializes plan updates per athlete.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when a lock could not be taken before the wait expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive locks keyed by athlete.
type Locker interface {
	// Acquire blocks until key is held or ctx is done. The returned func releases it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MutexMap is an in-process Locker. It only serializes callers within one process.
// An entry lives only while some caller holds or waits for its key.
type MutexMap struct {
	mu      sync.Mutex
	mutexes map[string]*keyMutex
}

type keyMutex struct {
	ch   chan struct{}
	refs int // holders plus waiters; guarded by MutexMap.mu
}

func NewMutexMap() *MutexMap {
	return &MutexMap{
		mutexes: make(map[string]*keyMutex),
	}
}

func (m *MutexMap) Acquire(ctx context.Context, key string) (func(), error) {
	km := m.ref(key)
	select {
	case km.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, km)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-km.ch
			m.unref(key, km)
		})
	}, nil
}

// keys reports how many keys currently have an entry.
func (m *MutexMap) keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mutexes)
}

func (m *MutexMap) ref(key string) *keyMutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	km, ok := m.mutexes[key]
	if !ok {
		km = &keyMutex{ch: make(chan struct{}, 1)}
		m.mutexes[key] = km
	}
	km.refs++
	return km
}

func (m *MutexMap) unref(key string, km *keyMutex) {
	m.mu.Lock()
	defer m.mu.Unlock()

	km.refs--
	if km.refs == 0 {
		delete(m.mutexes, key)
	}
}
