package service

import (
	"sync"

	id "voicedesk/pkg/domain"
)

// callLocks serialises work per call id. Entries are dropped once no
// goroutine holds or waits on them.
type callLocks struct {
	mu    sync.Mutex
	locks map[id.CallID]*callLock
}

type callLock struct {
	mu   sync.Mutex
	refs int
}

func newCallLocks() *callLocks {
	return &callLocks{locks: make(map[id.CallID]*callLock)}
}

// lock blocks until callID is free and returns its unlock function.
func (c *callLocks) lock(callID id.CallID) func() {
	c.mu.Lock()
	l, ok := c.locks[callID]
	if !ok {
		l = &callLock{}
		c.locks[callID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, callID)
		}
		c.mu.Unlock()
	}
}

func (c *callLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
