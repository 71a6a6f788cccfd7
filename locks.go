package blockstore

import "sync"

// typeLocks is a fixed registry of one write lock per payload type. A
// write that can't acquire its type's lock is rejected with
// ErrWriteConflict rather than queued, so writes across types proceed
// in parallel while writes within a type serialize without blocking
// callers indefinitely.
type typeLocks struct {
	mu [3]sync.Mutex
}

func (l *typeLocks) tryLock(t PayloadType) bool {
	return l.mu[t].TryLock()
}

func (l *typeLocks) unlock(t PayloadType) {
	l.mu[t].Unlock()
}

// lock blocks until type t's lock is acquired. Used by Batch, which
// holds all three locks for its duration rather than reject under
// contention the way a single write does.
func (l *typeLocks) lock(t PayloadType) {
	l.mu[t].Lock()
}

// lockAll acquires every type's lock in the fixed order Block, Undo,
// Merkle, to avoid deadlock against another batch doing the same.
func (l *typeLocks) lockAll() {
	l.lock(Block)
	l.lock(Undo)
	l.lock(Merkle)
}

func (l *typeLocks) unlockAll() {
	l.unlock(Merkle)
	l.unlock(Undo)
	l.unlock(Block)
}
