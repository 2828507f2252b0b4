package store

import "sync"

// Locks serialises read-modify-write cycles on one user's record within a
// process. Every writer of the authoritative store must share one Locks.
// A nil *Locks does not lock.
type Locks struct {
	mu    sync.Mutex
	users map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{users: map[int64]*userLock{}}
}

// Lock blocks until userID is free and returns the matching unlock.
func (l *Locks) Lock(userID int64) (unlock func()) {
	if l == nil {
		return func() {}
	}

	l.mu.Lock()
	ul, ok := l.users[userID]
	if !ok {
		ul = &userLock{}
		l.users[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}

// Held reports how many users currently have a holder or waiter.
func (l *Locks) Held() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
