// Package pinlock implements the hashed-PIN gate in front of the
// cached session key: verification with exponential backoff and a
// destructive wipe after too many consecutive failures.
//
// The failed-attempt counter and last-failure timestamp are durable,
// so the backoff window survives process restarts. The read-modify-
// write on that state is serialized by an in-process mutex only; two
// separate host processes sharing one durable store can still
// interleave. The design assumes a single active popup/session
// context at a time.
package pinlock

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vaultguard/vaultguard/pkg/clock"
	"github.com/vaultguard/vaultguard/pkg/crypto"
	"github.com/vaultguard/vaultguard/pkg/session"
	"github.com/vaultguard/vaultguard/pkg/store"
)

// Durable store entry names.
const (
	pinEntry         = "pin_hash"
	attemptsEntry    = "failed_attempts"
	lastFailureEntry = "last_failure"
)

// Policy defaults.
const (
	// DefaultMaxAttempts is the consecutive-failure count that
	// triggers the destructive wipe.
	DefaultMaxAttempts = 5

	// DefaultMaxBackoff caps the exponential cooldown.
	DefaultMaxBackoff = 300 * time.Second
)

// Errors returned by the guard.
var (
	// ErrPINFormat indicates the PIN is not 4-6 digits. Format
	// rejections never touch the attempt counter.
	ErrPINFormat = errors.New("pinlock: pin must be 4-6 digits")

	// ErrNoPIN indicates no PIN is configured.
	ErrNoPIN = errors.New("pinlock: no pin configured")

	// ErrNoSessionKey indicates SetPIN was called without a live
	// session key. A PIN only ever guards an existing key.
	ErrNoSessionKey = errors.New("pinlock: no session key cached, login required")
)

// LockoutError reports a verify attempt rejected because the backoff
// window is still active. The attempt consumed no hash comparison and
// mutated no counter.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("pinlock: locked out, retry in %v", e.Remaining.Round(time.Second))
}

// Status is the outcome of a verify attempt.
type Status int

const (
	// StatusUnlocked: the PIN matched and a session key is present.
	StatusUnlocked Status = iota
	// StatusWrongPIN: the PIN hash did not match; the failure counter
	// was incremented.
	StatusWrongPIN
	// StatusLoginRequired: the PIN matched but no session key is
	// present; the caller must fall back to master-password login.
	StatusLoginRequired
	// StatusWiped: the failure threshold was reached; PIN record and
	// counters were destroyed. Irreversible; the user must re-login
	// and set a new PIN.
	StatusWiped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnlocked:
		return "unlocked"
	case StatusWrongPIN:
		return "wrong-pin"
	case StatusLoginRequired:
		return "login-required"
	case StatusWiped:
		return "wiped"
	default:
		return "unknown"
	}
}

// VerifyResult carries the outcome of a verify attempt.
type VerifyResult struct {
	Status Status
	// AttemptsLeft is how many further failures remain before the
	// destructive wipe. Meaningful for StatusWrongPIN.
	AttemptsLeft int
}

// Guard is the PIN lock state machine. Its state lives in the durable
// store; absence of a PIN record means PIN-lock is not configured.
type Guard struct {
	mu          sync.Mutex
	durable     store.DurableStore
	keys        *session.KeyCache
	clk         clock.Clock
	maxAttempts int
	maxBackoff  time.Duration
}

// NewGuard returns a Guard. Zero maxAttempts or maxBackoff select the
// defaults.
func NewGuard(durable store.DurableStore, keys *session.KeyCache, clk clock.Clock, maxAttempts int, maxBackoff time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}
	return &Guard{
		durable:     durable,
		keys:        keys,
		clk:         clk,
		maxAttempts: maxAttempts,
		maxBackoff:  maxBackoff,
	}
}

// HasPIN reports whether a PIN record exists.
func (g *Guard) HasPIN() (bool, error) {
	_, ok, err := g.durable.Get(pinEntry)
	if err != nil {
		return false, fmt.Errorf("pinlock: failed to read pin record: %w", err)
	}
	return ok, nil
}

// SetPIN stores the hash of a new PIN and resets the failure state.
// A session key must already be cached: setting a PIN transitions
// NoPinConfigured directly to Unlocked.
func (g *Guard) SetPIN(pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !validPIN(pin) {
		return ErrPINFormat
	}
	hasKey, err := g.keys.HasKey()
	if err != nil {
		return err
	}
	if !hasKey {
		return ErrNoSessionKey
	}

	if err := g.durable.Put(pinEntry, []byte(crypto.HashPIN(pin))); err != nil {
		return fmt.Errorf("pinlock: failed to store pin record: %w", err)
	}
	return g.resetFailureState()
}

// Verify checks a PIN attempt against the stored record.
//
// The backoff gate runs first: with n prior consecutive failures the
// required wait since the last failure is min(2^n, maxBackoff)
// seconds, and an attempt inside that window returns a *LockoutError
// without consuming a hash comparison or mutating the counter.
//
// A mismatch increments the durable failure counter; reaching the
// configured maximum destroys the PIN record and counters
// (StatusWiped). A match resets the counter and yields StatusUnlocked,
// or StatusLoginRequired when the session key is gone.
func (g *Guard) Verify(pin string) (VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !validPIN(pin) {
		return VerifyResult{}, ErrPINFormat
	}

	stored, ok, err := g.durable.Get(pinEntry)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("pinlock: failed to read pin record: %w", err)
	}
	if !ok {
		return VerifyResult{}, ErrNoPIN
	}

	count, lastFailure, err := g.failureState()
	if err != nil {
		return VerifyResult{}, err
	}

	if count > 0 {
		delay := g.backoffDelay(count)
		now := g.clk.Now()
		if gate := lastFailure.Add(delay); now.Before(gate) {
			return VerifyResult{}, &LockoutError{Remaining: gate.Sub(now)}
		}
	}

	attempt := crypto.HashPIN(pin)
	if subtle.ConstantTimeCompare([]byte(attempt), stored) != 1 {
		count++
		if count >= g.maxAttempts {
			if err := g.wipe(); err != nil {
				return VerifyResult{}, err
			}
			return VerifyResult{Status: StatusWiped}, nil
		}
		if err := g.recordFailure(count); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{Status: StatusWrongPIN, AttemptsLeft: g.maxAttempts - count}, nil
	}

	// The PIN itself verified, so the failure streak ends here even if
	// the session has to be re-established.
	if err := g.resetFailureState(); err != nil {
		return VerifyResult{}, err
	}

	hasKey, err := g.keys.HasKey()
	if err != nil {
		return VerifyResult{}, err
	}
	if !hasKey {
		return VerifyResult{Status: StatusLoginRequired}, nil
	}
	return VerifyResult{Status: StatusUnlocked}, nil
}

// FailedAttempts returns the current consecutive-failure count.
func (g *Guard) FailedAttempts() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	count, _, err := g.failureState()
	return count, err
}

// RemainingLockout returns how long the backoff gate still holds, or
// zero when an attempt would be accepted now.
func (g *Guard) RemainingLockout() (time.Duration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	count, lastFailure, err := g.failureState()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	gate := lastFailure.Add(g.backoffDelay(count))
	if remaining := gate.Sub(g.clk.Now()); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// ClearSecurityData removes the PIN record and failure counters. This
// is the explicit local wipe (logout-everything); it is also invoked
// internally when the failure threshold is reached.
func (g *Guard) ClearSecurityData() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wipe()
}

// backoffDelay computes min(2^count, maxBackoff) seconds.
func (g *Guard) backoffDelay(count int) time.Duration {
	// 2^count seconds exceeds any sane cap long before the shift
	// overflows; clamp the exponent to keep the arithmetic defined.
	if count > 30 {
		return g.maxBackoff
	}
	delay := time.Duration(1<<uint(count)) * time.Second
	if delay > g.maxBackoff {
		return g.maxBackoff
	}
	return delay
}

func (g *Guard) failureState() (int, time.Time, error) {
	raw, ok, err := g.durable.Get(attemptsEntry)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("pinlock: failed to read attempt count: %w", err)
	}
	if !ok {
		return 0, time.Time{}, nil
	}
	count, err := strconv.Atoi(string(raw))
	if err != nil || count < 0 {
		// Corrupt counter: treat as the worst legitimate state rather
		// than resetting, so tampering cannot erase a lockout.
		count = g.maxAttempts - 1
	}

	var lastFailure time.Time
	if raw, ok, err = g.durable.Get(lastFailureEntry); err != nil {
		return 0, time.Time{}, fmt.Errorf("pinlock: failed to read last failure: %w", err)
	} else if ok {
		if millis, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
			lastFailure = time.UnixMilli(millis)
		}
	}
	return count, lastFailure, nil
}

func (g *Guard) recordFailure(count int) error {
	if err := g.durable.Put(attemptsEntry, []byte(strconv.Itoa(count))); err != nil {
		return fmt.Errorf("pinlock: failed to store attempt count: %w", err)
	}
	now := g.clk.Now().UnixMilli()
	if err := g.durable.Put(lastFailureEntry, []byte(strconv.FormatInt(now, 10))); err != nil {
		return fmt.Errorf("pinlock: failed to store failure timestamp: %w", err)
	}
	return nil
}

func (g *Guard) resetFailureState() error {
	if err := g.durable.Delete(attemptsEntry); err != nil {
		return fmt.Errorf("pinlock: failed to reset attempt count: %w", err)
	}
	if err := g.durable.Delete(lastFailureEntry); err != nil {
		return fmt.Errorf("pinlock: failed to reset failure timestamp: %w", err)
	}
	return nil
}

func (g *Guard) wipe() error {
	if err := g.durable.Delete(pinEntry); err != nil {
		return fmt.Errorf("pinlock: failed to wipe pin record: %w", err)
	}
	return g.resetFailureState()
}

// validPIN reports whether pin is 4-6 ASCII digits.
func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
