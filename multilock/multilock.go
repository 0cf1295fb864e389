package multilock

import (
	"fmt"
	"sort"
	"sync"
	"time"

	golock "github.com/viney-shih/go-lock"
)

// DefaultTimeout is how long Lock waits for each name when no timeout is given.
const DefaultTimeout = 5 * time.Second

// MultiLock is a system for locking of individual string-keyed resources.
type MultiLock struct {
	l     sync.Mutex
	locks map[string]*golock.CASMutex
}

// New instantiates a new MultiLock.
func New() *MultiLock {
	return &MultiLock{locks: map[string]*golock.CASMutex{}}
}

// keyLock returns the lock for the given key, creating it on first use.
func (m *MultiLock) keyLock(key string) *golock.CASMutex {
	m.l.Lock()
	defer m.l.Unlock()

	keyLock, ok := m.locks[key]
	if !ok {
		keyLock = golock.NewCASMutex()
		m.locks[key] = keyLock
	}
	return keyLock
}

// Acquire acquires the lock for the given key, returning True on success and False on timeout.
func (m *MultiLock) Acquire(timeout time.Duration, key string) bool {
	return m.keyLock(key).TryLockWithTimeout(timeout)
}

// Release releases the lock for the given key. Releasing a key that was never locked does nothing.
func (m *MultiLock) Release(key string) {
	m.l.Lock()
	keyLock, ok := m.locks[key]
	m.l.Unlock()
	if !ok {
		return
	}
	keyLock.Unlock()
}

// Locker adapts a MultiLock to lock several names at once with a per-name timeout.
type Locker struct {
	m       *MultiLock
	timeout time.Duration
}

// NewLocker builds a Locker over a fresh MultiLock. A zero timeout means DefaultTimeout.
func NewLocker(timeout time.Duration) *Locker {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Locker{m: New(), timeout: timeout}
}

// Lock acquires every name, in sorted order so that overlapping callers cannot deadlock. On failure,
// names already acquired are released.
func (l *Locker) Lock(names ...string) (func(), error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	held := make([]string, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.m.Release(held[i])
		}
	}
	for _, name := range sorted {
		if len(held) > 0 && held[len(held)-1] == name {
			continue
		}
		if !l.m.Acquire(l.timeout, name) {
			release()
			return nil, fmt.Errorf("timed out locking key: %s", name)
		}
		held = append(held, name)
	}
	return release, nil
}
