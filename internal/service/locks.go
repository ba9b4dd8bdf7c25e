package service

import (
	"sync"
)

// MatchLocks serializes mutating operations per match. Operations on
// different matches proceed in parallel; two captains racing the same
// pick/ban turn, or two admins racing a confirmation, are ordered by
// the same mutex the cancellation check runs under.
type MatchLocks struct {
	mu sync.Map // match id -> *sync.Mutex
}

func NewMatchLocks() *MatchLocks {
	return &MatchLocks{}
}

// Acquire locks the mutex for the given match and returns the unlock.
func (l *MatchLocks) Acquire(matchID string) func() {
	v, _ := l.mu.LoadOrStore(matchID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
