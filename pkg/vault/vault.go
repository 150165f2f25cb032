// Package vault is the facade over the vaultguard security core: it
// wires key derivation, the session key cache, the PIN guard, the
// auto-lock monitor, the secret cipher, the clipboard manager, and the
// phishing matcher into the flows the extension host calls.
//
// Every access path to the cached key runs through either a fresh
// login or a successful PIN check plus a non-expired session.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vaultguard/vaultguard/pkg/audit"
	"github.com/vaultguard/vaultguard/pkg/clipboard"
	"github.com/vaultguard/vaultguard/pkg/crypto"
	"github.com/vaultguard/vaultguard/pkg/phishing"
	"github.com/vaultguard/vaultguard/pkg/pinlock"
	"github.com/vaultguard/vaultguard/pkg/session"
)

// MinPasswordLength is the hard minimum for the master password.
const MinPasswordLength = 8

// Errors returned by the facade.
var (
	// ErrPasswordTooShort rejects a master password before derivation.
	ErrPasswordTooShort = errors.New("vault: password must be at least 8 characters")

	// ErrLocked indicates no session key is cached; a fresh login is
	// required.
	ErrLocked = errors.New("vault: locked, login required")

	// ErrSessionExpired indicates the inactivity window elapsed; the
	// unlocked view must be re-established via PIN or login.
	ErrSessionExpired = errors.New("vault: session expired, re-authentication required")

	// ErrDomainMismatch blocks a fill whose page does not match the
	// secret's registered domain.
	ErrDomainMismatch = errors.New("vault: page domain does not match the stored site")
)

// Core orchestrates the security components. All dependencies are
// injected; the core holds no globals.
type Core struct {
	mu        sync.Mutex
	keys      *session.KeyCache
	monitor   *session.Monitor
	pins      *pinlock.Guard
	cache     *Cache
	audit     *audit.Logger
	clip      *clipboard.Manager
	transport Transport
	clipTTL   time.Duration
}

// Deps collects the collaborators for New. Cache, Audit, and Clipboard
// are optional; the rest are required.
type Deps struct {
	Keys         *session.KeyCache
	Monitor      *session.Monitor
	Pins         *pinlock.Guard
	Cache        *Cache
	Audit        *audit.Logger
	Clipboard    *clipboard.Manager
	Transport    Transport
	ClipboardTTL time.Duration
}

// New returns a Core over the given dependencies.
func New(deps Deps) *Core {
	return &Core{
		keys:      deps.Keys,
		monitor:   deps.Monitor,
		pins:      deps.Pins,
		cache:     deps.Cache,
		audit:     deps.Audit,
		clip:      deps.Clipboard,
		transport: deps.Transport,
		clipTTL:   deps.ClipboardTTL,
	}
}

// Login derives the session key from the master password and the
// account salt served by the transport, caches it, and starts the
// activity window. The master password buffer is wiped before return
// on every path; the caller must not reuse it.
//
// A malformed or absent salt surfaces crypto.ErrInvalidSalt: the
// account is misconfigured and retrying will not help.
func (c *Core) Login(ctx context.Context, masterPassword []byte) error {
	defer crypto.SecureWipe(masterPassword)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(masterPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	salt, err := c.transport.Salt(ctx)
	if err != nil {
		return fmt.Errorf("vault: failed to fetch account salt: %w", err)
	}

	key, err := c.keys.DeriveAndCache(masterPassword, salt)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(key)

	if c.audit != nil {
		if err := c.audit.SetHMACKey(key); err == nil {
			_ = c.audit.LogSuccess(audit.OpLogin, "")
		}
	}

	return c.monitor.TouchActivity()
}

// Logout clears the cached session key and the activity record. The
// PIN record survives; the next unlock goes through Login because the
// key is gone.
func (c *Core) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.keys.Clear(); err != nil {
		return err
	}
	if err := c.monitor.ClearActivity(); err != nil {
		return err
	}
	if c.audit != nil {
		_ = c.audit.LogSuccess(audit.OpLogout, "")
	}
	return nil
}

// Unlocked reports whether the vault is currently usable: a session
// key is cached and the inactivity window has not elapsed.
func (c *Core) Unlocked() (bool, error) {
	hasKey, err := c.keys.HasKey()
	if err != nil {
		return false, err
	}
	if !hasKey {
		return false, nil
	}
	expired, err := c.monitor.IsExpired()
	if err != nil {
		return false, err
	}
	return !expired, nil
}

// SetPIN configures the PIN gate. Requires a live session key.
func (c *Core) SetPIN(pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pins.SetPIN(pin); err != nil {
		return err
	}
	if c.audit != nil {
		_ = c.audit.LogSuccess(audit.OpPINSet, "")
	}
	return c.monitor.TouchActivity()
}

// VerifyPIN runs a PIN attempt through the guard and, on success,
// renews the activity window. A *pinlock.LockoutError means the
// backoff window is still active and carries the remaining wait.
//
// A StatusWiped result is a terminal security action, not a failure to
// retry: the PIN record and counters are gone and the user must
// re-login with the master password and set a new PIN.
func (c *Core) VerifyPIN(pin string) (pinlock.VerifyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.pins.Verify(pin)
	if err != nil {
		var lockout *pinlock.LockoutError
		if errors.As(err, &lockout) && c.audit != nil {
			_ = c.audit.Log(audit.OpPINLockout, audit.ResultDenied,
				fmt.Sprintf("retry in %v", lockout.Remaining.Round(time.Second)))
		}
		return res, err
	}

	switch res.Status {
	case pinlock.StatusUnlocked:
		if c.audit != nil {
			_ = c.audit.LogSuccess(audit.OpPINVerify, "")
		}
		return res, c.monitor.TouchActivity()
	case pinlock.StatusWrongPIN:
		if c.audit != nil {
			_ = c.audit.LogError(audit.OpPINFailed,
				fmt.Sprintf("%d attempts left", res.AttemptsLeft))
		}
	case pinlock.StatusWiped:
		if c.audit != nil {
			_ = c.audit.Log(audit.OpWipe, audit.ResultDenied,
				"failure threshold reached, pin record destroyed")
		}
	}
	return res, nil
}

// HasPIN reports whether a PIN record exists.
func (c *Core) HasPIN() (bool, error) {
	return c.pins.HasPIN()
}

// RefreshSecrets fetches the secret records from the transport and
// replaces the local cache.
func (c *Core) RefreshSecrets(ctx context.Context) ([]EncryptedSecret, error) {
	records, err := c.transport.Secrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to fetch secrets: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.Replace(records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// ListSecrets returns the cached records, falling back to the
// transport when no cache is configured.
func (c *Core) ListSecrets(ctx context.Context) ([]EncryptedSecret, error) {
	if c.cache != nil {
		return c.cache.List()
	}
	return c.transport.Secrets(ctx)
}

// AddSecret seals a new secret under the session key and stores it in
// the local cache. Requires an unlocked, non-expired session and a
// configured cache.
func (c *Core) AddSecret(secret DecryptedSecret) (EncryptedSecret, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		return EncryptedSecret{}, errors.New("vault: no secret cache configured")
	}

	key, err := c.requireUnlocked()
	if err != nil {
		return EncryptedSecret{}, err
	}
	defer crypto.SecureWipe(key)

	rec, err := SealSecret(key, secret)
	if err != nil {
		return EncryptedSecret{}, err
	}
	if err := c.cache.Put(rec); err != nil {
		return EncryptedSecret{}, err
	}
	return rec, c.monitor.TouchActivity()
}

// DecryptSecrets decrypts the given records for display. A record
// whose authentication fails degrades to an undecryptable placeholder
// instead of failing the whole listing. Requires an unlocked,
// non-expired session.
func (c *Core) DecryptSecrets(records []EncryptedSecret) ([]DecryptedSecret, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireUnlocked()
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(key)

	out := make([]DecryptedSecret, 0, len(records))
	for _, rec := range records {
		secret, err := openSecret(key, rec)
		if err != nil {
			if c.audit != nil {
				_ = c.audit.LogError(audit.OpSecretDecrypt, rec.ID)
			}
			out = append(out, placeholder(rec))
			continue
		}
		out = append(out, secret)
	}
	return out, nil
}

// Fill decrypts a secret and delivers its credentials to the active
// page through the messaging collaborator.
//
// The page hostname is compared against the secret's registered
// domain first. A mismatch blocks the fill with ErrDomainMismatch
// unless force is set; the returned MatchResult carries the warning
// either way so the host can show it. The matcher is a heuristic on
// top of the unlock gate, never the only thing between a page and a
// secret.
func (c *Core) Fill(pageURL string, rec EncryptedSecret, filler Filler, force bool) (phishing.MatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.requireUnlocked()
	if err != nil {
		return phishing.MatchResult{}, err
	}
	defer crypto.SecureWipe(key)

	secret, err := openSecret(key, rec)
	if err != nil {
		return phishing.MatchResult{}, err
	}

	match := phishing.Match(pageURL, secret.URL)
	if !match.IsMatch && !force {
		if c.audit != nil {
			_ = c.audit.Log(audit.OpFillBlocked, audit.ResultDenied, match.Warning)
		}
		return match, ErrDomainMismatch
	}

	if err := filler.Fill(secret.Username, secret.Password); err != nil {
		return match, fmt.Errorf("vault: fill delivery failed: %w", err)
	}
	if c.audit != nil {
		_ = c.audit.LogSuccess(audit.OpFill, secret.ID)
	}
	return match, c.monitor.TouchActivity()
}

// CopyPassword decrypts a secret and places its password on the
// clipboard with the auto-clear schedule.
func (c *Core) CopyPassword(rec EncryptedSecret) error {
	return c.copyField(rec, false)
}

// CopyUsername decrypts a secret and places its username on the
// clipboard with the auto-clear schedule.
func (c *Core) CopyUsername(rec EncryptedSecret) error {
	return c.copyField(rec, true)
}

func (c *Core) copyField(rec EncryptedSecret, username bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clip == nil {
		return errors.New("vault: no clipboard configured")
	}

	key, err := c.requireUnlocked()
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(key)

	secret, err := openSecret(key, rec)
	if err != nil {
		return err
	}

	value := secret.Password
	if username {
		value = secret.Username
	}
	if err := c.clip.CopyWithAutoClear(value, c.clipTTL); err != nil {
		return err
	}
	if c.audit != nil {
		_ = c.audit.LogSuccess(audit.OpClipboardCopy, secret.ID)
	}
	return c.monitor.TouchActivity()
}

// ClearSecurityData performs the explicit local wipe: PIN record,
// failure counters, cached key, activity, and the local secret cache.
func (c *Core) ClearSecurityData() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pins.ClearSecurityData(); err != nil {
		return err
	}
	if err := c.keys.Clear(); err != nil {
		return err
	}
	if err := c.monitor.ClearActivity(); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			return err
		}
	}
	if c.audit != nil {
		_ = c.audit.Log(audit.OpWipe, audit.ResultSuccess, "explicit security-data clear")
	}
	return nil
}

// requireUnlocked returns the session key when the vault is usable:
// key cached and inactivity window still open. The expiry check is
// policy layered above the cache: an expired session fails here even
// though the key bytes are still present.
func (c *Core) requireUnlocked() ([]byte, error) {
	key, ok, err := c.keys.CachedKey()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	expired, err := c.monitor.IsExpired()
	if err != nil {
		crypto.SecureWipe(key)
		return nil, err
	}
	if expired {
		crypto.SecureWipe(key)
		return nil, ErrSessionExpired
	}
	return key, nil
}
