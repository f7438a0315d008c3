package service

import (
	"sync"

	"github.com/google/uuid"
)

// modelLocks serializes lifecycle mutations per model. All writers run
// in this process, so an in-process keyed mutex is sufficient to keep
// read-decide-append sequences atomic together with the surrounding
// database transaction.
type modelLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*modelLock
}

type modelLock struct {
	mu   sync.Mutex
	refs int
}

func newModelLocks() *modelLocks {
	return &modelLocks{locks: make(map[uuid.UUID]*modelLock)}
}

// Lock acquires the mutex for the given model, creating it on first use.
// The returned func releases the mutex and frees it once unreferenced.
func (l *modelLocks) Lock(modelID uuid.UUID) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[modelID]
	if !ok {
		entry = &modelLock{}
		l.locks[modelID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, modelID)
		}
		l.mu.Unlock()
	}
}
