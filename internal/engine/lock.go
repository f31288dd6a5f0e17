package engine

import "sync"

// keyedMutex serializes mutations per key (one key per event+module, plus
// one per like pair).  A coarse per-key mutex is enough at live-event
// scale.  Entries are never removed; the key space is bounded by the
// number of live events.
type keyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	mu, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
