package ledger

import "sync"

// scopeLocks serializes appends per chain scope. Locking one project's
// progress chain never blocks another project's, and never blocks the
// audit chain; the two locks are never held at the same time.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a scope key, creating it on first use.
// Returns the unlock function. Lock entries are never removed: the set of
// scopes is bounded by the project registry.
func (sl *scopeLocks) lock(scope string) func() {
	sl.mu.Lock()
	m, ok := sl.locks[scope]
	if !ok {
		m = &sync.Mutex{}
		sl.locks[scope] = m
	}
	sl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
