package dispatch

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// pathLocks hands out reader/writer locks keyed by absolute path.
//
// Entries are reference counted and removed when the last holder releases
// them, so the map only holds paths with requests in flight.
type pathLocks struct {
	entries *xsync.Map[string, *lockEntry]
}

type lockEntry struct {
	mu   sync.RWMutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{entries: xsync.NewMap[string, *lockEntry]()}
}

func (l *pathLocks) acquire(key string) *lockEntry {
	entry, _ := l.entries.Compute(key, func(old *lockEntry, loaded bool) (*lockEntry, xsync.ComputeOp) {
		if !loaded {
			old = &lockEntry{}
		}
		old.refs++
		return old, xsync.UpdateOp
	})
	return entry
}

func (l *pathLocks) release(key string) {
	l.entries.Compute(key, func(old *lockEntry, loaded bool) (*lockEntry, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.refs--
		if old.refs == 0 {
			return old, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}

// lock takes exclusive locks on keys in sorted order and returns the
// matching unlock function. Duplicate keys are locked once.
func (l *pathLocks) lock(keys ...string) func() {
	return l.take(true, keys)
}

// rlock takes shared locks on keys.
func (l *pathLocks) rlock(keys ...string) func() {
	return l.take(false, keys)
}

func (l *pathLocks) take(exclusive bool, keys []string) func() {
	if l == nil {
		return func() {}
	}

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	unique := make([]string, 0, len(sorted))
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			unique = append(unique, k)
		}
	}

	held := make([]*lockEntry, 0, len(unique))
	for _, k := range unique {
		entry := l.acquire(k)
		if exclusive {
			entry.mu.Lock()
		} else {
			entry.mu.RLock()
		}
		held = append(held, entry)
	}

	return func() {
		for i := len(unique) - 1; i >= 0; i-- {
			if exclusive {
				held[i].mu.Unlock()
			} else {
				held[i].mu.RUnlock()
			}
			l.release(unique[i])
		}
	}
}

// size returns the number of tracked keys.
func (l *pathLocks) size() int {
	return l.entries.Size()
}
