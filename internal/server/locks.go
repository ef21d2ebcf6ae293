package server

import (
	"sync"
	"time"
)

// defaultLockWait bounds how long a request waits for the user's lock
// before failing fast with busy.
const defaultLockWait = 250 * time.Millisecond

// userLocks serializes game mutations per user. Each HTTP request does a
// load-mutate-save against the store; without the lock, two rapid actions
// from the same client could interleave and draw cards off stale decks.
// The store's version check is the cross-process backstop; this is the
// cheap in-process fast path.
type userLocks struct {
	mu    sync.Mutex
	wait  time.Duration
	users map[int64]*userLock
}

type userLock struct {
	sem  chan struct{}
	refs int
}

func newUserLocks(wait time.Duration) *userLocks {
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &userLocks{wait: wait, users: make(map[int64]*userLock)}
}

// Acquire takes the user's exclusive lock, waiting up to the bounded wait.
// It returns a release func, or ErrBusy when the lock could not be taken
// in time. Release must be called exactly once.
func (l *userLocks) Acquire(userID int64) (func(), error) {
	l.mu.Lock()
	entry, ok := l.users[userID]
	if !ok {
		entry = &userLock{sem: make(chan struct{}, 1)}
		l.users[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.release(userID, entry)
		}, nil
	case <-timer.C:
		l.release(userID, entry)
		return nil, ErrBusy
	}
}

func (l *userLocks) release(userID int64, entry *userLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.users, userID)
	}
	l.mu.Unlock()
}
