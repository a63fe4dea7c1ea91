package core

import "sync"

var (
	defaultStore   *Store
	defaultStoreMu sync.Mutex
)

// Default returns the process-wide convenience store, constructing it
// lazily on first use.
//
// The default store is always in-memory only (no durable backend), so
// construction cannot block or fail. Production code should construct
// stores explicitly with NewStore and pass them by dependency injection;
// Default exists for scripts and test ergonomics.
func Default() *Store {
	defaultStoreMu.Lock()
	defer defaultStoreMu.Unlock()

	if defaultStore == nil {
		// DefaultConfig has no persistence provider, so this cannot fail.
		defaultStore, _ = NewStore(DefaultConfig())
	}
	return defaultStore
}

// Reset discards the process-wide store so the next Default call builds
// a fresh one. Intended for test isolation.
func Reset() {
	defaultStoreMu.Lock()
	defer defaultStoreMu.Unlock()
	defaultStore = nil
}
