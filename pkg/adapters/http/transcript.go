package http

import (
	"context"
	"sync"
)

// recipientLocks serializes submit-and-drain per recipient. The recorder keys
// transcripts by recipient only, so a second request for the same recipient must
// wait until the first one has drained its replies.
type recipientLocks struct {
	mu    sync.Mutex
	locks map[string]*recipientLock
}

type recipientLock struct {
	sem  chan struct{}
	refs int
}

func newRecipientLocks() *recipientLocks {
	return &recipientLocks{locks: make(map[string]*recipientLock)}
}

// lock waits until id is free or ctx is done and returns the matching unlock.
func (l *recipientLocks) lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &recipientLock{sem: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.release(id, entry)
		}, nil
	case <-ctx.Done():
		l.release(id, entry)
		return nil, ctx.Err()
	}
}

func (l *recipientLocks) release(id string, entry *recipientLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, id)
	}
}

// size reports the number of live entries.
func (l *recipientLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
