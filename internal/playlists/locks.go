package playlists

import (
	"sort"
	"sync"
)

// keyedLocks serializes writers per playlist within this process. Entries
// are dropped once no goroutine holds or waits on them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*keyedLock)}
}

// lock acquires the locks for ids in ascending order and returns the
// release function.
func (k *keyedLocks) lock(ids ...int64) func() {
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	held := make([]int64, 0, len(ordered))
	for i, id := range ordered {
		if i > 0 && ordered[i-1] == id {
			continue
		}
		k.acquire(id)
		held = append(held, id)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(held[i])
		}
	}
}

func (k *keyedLocks) acquire(id int64) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedLocks) release(id int64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l := k.locks[id]
	l.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}
