// ABOUTME: Per-conversation mutual exclusion for orchestration cycles
// ABOUTME: A second request for the same id queues behind the first; distinct ids run in parallel

package conversation

import "sync"

// keyedLocks hands out one mutex per conversation id. Entries are reference
// counted and removed when the last holder releases, so the map does not
// grow with the number of conversations ever seen.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for id, blocking while another holder has it.
// The returned func releases it.
func (k *keyedLocks) Lock(id string) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.locks, id)
			}
			k.mu.Unlock()
		})
	}
}
