// Package store defines the key-value capability interfaces behind
// which the core keeps all of its state, plus the concrete stores used
// by the extension host.
//
// Two scopes exist and must never be confused:
//
//   - DurableStore persists across restarts (PIN hash, failed-attempt
//     counters, lock-timeout setting).
//   - VolatileStore lives for the browser session only (cached session
//     key, last-activity timestamp) and is discarded when the session
//     ends.
//
// The core never touches a global store directly; both scopes are
// injected, which keeps unit tests deterministic with in-memory fakes.
package store

import "errors"

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("store: closed")

// KV is the narrow key-value capability shared by both scopes.
type KV interface {
	// Get returns the value for key. The second return reports whether
	// the key was present.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key, overwriting any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// DurableStore is a KV whose contents survive process restarts.
type DurableStore interface {
	KV
}

// VolatileStore is a KV scoped to the browser session; its contents
// vanish when the session (or hosting process) ends.
type VolatileStore interface {
	KV
}
