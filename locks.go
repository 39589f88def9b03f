/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "sync"

type characterLock struct {
	mu      sync.Mutex
	holders int
}

// characterLocks serializes commands per character id, so a character's
// events leave the server in the same order its deltas were committed.
// Entries exist only while some command holds or waits on them.
type characterLocks struct {
	mu    sync.Mutex
	locks map[int64]*characterLock
}

func newCharacterLocks() *characterLocks {
	return &characterLocks{locks: make(map[int64]*characterLock)}
}

func (l *characterLocks) lock(id int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[id]
	if !ok {
		cl = &characterLock{}
		l.locks[id] = cl
	}
	cl.holders++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.holders--
		if cl.holders == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *characterLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
