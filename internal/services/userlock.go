package services

import "sync"

// UserLocks serializes processing per user while leaving different users
// fully parallel. The session store is a bare read-modify-write, so two
// concurrent dispatches for one user would lose updates. Lock entries are
// reference-counted and removed as soon as the last holder releases, so
// the map only ever holds users with in-flight work.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewUserLocks creates an empty lock registry.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Acquire blocks until the caller holds the user's slot and returns the
// release function.
func (l *UserLocks) Acquire(userID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
