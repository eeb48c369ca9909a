package router

import (
	"sync"
)

// userLocker serializes state changes per user identity. The "one active
// session per user" invariant and the append-then-bump sequence both need
// user-scoped mutual exclusion; everything else runs concurrently.
//
// Locks protect store mutation only. Relay sends must happen after release.
type userLocker struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocker() *userLocker {
	return &userLocker{locks: make(map[int64]*userLock)}
}

// acquire blocks until the user's lock is held and returns the release
// function. Lock entries are reference-counted so the map does not grow
// with every user ever seen.
func (l *userLocker) acquire(userID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, userID)
			}
			l.mu.Unlock()
		})
	}
}
