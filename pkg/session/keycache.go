// Package session manages the cached session key and the inactivity
// policy that decides when the unlocked view must be treated as
// re-locked.
//
// Exactly one session key is live at a time. It is derived from the
// master password at login, held base64-encoded in the session-scoped
// volatile store, and physically cleared only on explicit logout or
// when the volatile scope ends. The auto-lock monitor layered above it
// can invalidate the unlocked view without touching the key bytes.
package session

import (
	"fmt"

	"github.com/vaultguard/vaultguard/pkg/crypto"
	"github.com/vaultguard/vaultguard/pkg/encoding"
	"github.com/vaultguard/vaultguard/pkg/store"
)

// Volatile store entry names.
const (
	keyEntry      = "session_key"
	activityEntry = "last_activity"
)

// KeyCache derives the session key and keeps it in the volatile store.
// Only this type writes the key; the cipher and the PIN guard read it.
type KeyCache struct {
	volatile   store.VolatileStore
	iterations int
}

// NewKeyCache returns a KeyCache deriving with the given PBKDF2
// iteration count (0 selects crypto.DefaultIterations).
func NewKeyCache(volatile store.VolatileStore, iterations int) *KeyCache {
	return &KeyCache{volatile: volatile, iterations: iterations}
}

// DeriveAndCache derives the session key from (masterSecret, salt) and
// stores it, overwriting any previously cached key. The caller owns
// masterSecret and must wipe it immediately after this call returns.
//
// A malformed or absent salt fails with crypto.ErrInvalidSalt; the
// account is misconfigured and the caller must not retry silently.
func (c *KeyCache) DeriveAndCache(masterSecret, salt []byte) ([]byte, error) {
	key, err := crypto.DeriveKey(masterSecret, salt, c.iterations)
	if err != nil {
		return nil, err
	}
	if err := c.volatile.Put(keyEntry, []byte(encoding.ToBase64(key))); err != nil {
		crypto.SecureWipe(key)
		return nil, fmt.Errorf("session: failed to cache key: %w", err)
	}
	return key, nil
}

// CachedKey reads the session key back from the volatile store. The
// second return reports whether a key is present.
func (c *KeyCache) CachedKey() ([]byte, bool, error) {
	encoded, ok, err := c.volatile.Get(keyEntry)
	if err != nil {
		return nil, false, fmt.Errorf("session: failed to read cached key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	key, err := encoding.FromBase64(string(encoded))
	if err != nil {
		return nil, false, fmt.Errorf("session: corrupt cached key: %w", err)
	}
	return key, true, nil
}

// HasKey reports whether a session key is currently cached.
func (c *KeyCache) HasKey() (bool, error) {
	_, ok, err := c.volatile.Get(keyEntry)
	if err != nil {
		return false, fmt.Errorf("session: failed to read cached key: %w", err)
	}
	return ok, nil
}

// Clear removes the cached key. The stored entry is overwritten with
// zeros before deletion so the encoded key material does not linger in
// the store.
func (c *KeyCache) Clear() error {
	encoded, ok, err := c.volatile.Get(keyEntry)
	if err != nil {
		return fmt.Errorf("session: failed to read cached key: %w", err)
	}
	if ok {
		crypto.SecureWipe(encoded)
		if err := c.volatile.Put(keyEntry, encoded); err != nil {
			return fmt.Errorf("session: failed to overwrite cached key: %w", err)
		}
	}
	if err := c.volatile.Delete(keyEntry); err != nil {
		return fmt.Errorf("session: failed to clear cached key: %w", err)
	}
	return nil
}
