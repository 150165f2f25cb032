package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vaultguard/vaultguard/pkg/clock"
	"github.com/vaultguard/vaultguard/pkg/store"
)

// timeoutEntry is the durable store entry holding the user-chosen
// inactivity window in minutes. When absent the default applies.
const timeoutEntry = "lock_timeout_minutes"

// DefaultLockTimeout applies when the user has not chosen an
// inactivity window.
const DefaultLockTimeout = 5 * time.Minute

// Monitor enforces the inactivity auto-lock policy. It is layered
// above the raw key cache: IsExpired returning true means the unlocked
// view must be treated as re-locked even though the session key bytes
// may still be physically present.
type Monitor struct {
	volatile       store.VolatileStore
	durable        store.DurableStore
	clk            clock.Clock
	defaultTimeout time.Duration
}

// NewMonitor returns a Monitor reading activity from the volatile
// store and the timeout setting from the durable store. A zero
// defaultTimeout selects DefaultLockTimeout.
func NewMonitor(volatile store.VolatileStore, durable store.DurableStore, clk clock.Clock, defaultTimeout time.Duration) *Monitor {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultLockTimeout
	}
	return &Monitor{
		volatile:       volatile,
		durable:        durable,
		clk:            clk,
		defaultTimeout: defaultTimeout,
	}
}

// TouchActivity records the current instant as the last activity.
// Called after every successful unlock-producing action.
func (m *Monitor) TouchActivity() error {
	now := m.clk.Now().UnixMilli()
	if err := m.volatile.Put(activityEntry, []byte(strconv.FormatInt(now, 10))); err != nil {
		return fmt.Errorf("session: failed to record activity: %w", err)
	}
	return nil
}

// IsExpired reports whether the inactivity window has elapsed. The
// upper bound is inclusive: at exactly lastActivity+timeout the
// session counts as expired. No recorded activity also counts as
// expired, which forces a fresh unlock.
func (m *Monitor) IsExpired() (bool, error) {
	raw, ok, err := m.volatile.Get(activityEntry)
	if err != nil {
		return true, fmt.Errorf("session: failed to read activity: %w", err)
	}
	if !ok {
		return true, nil
	}
	last, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return true, fmt.Errorf("session: corrupt activity timestamp: %w", err)
	}

	timeout, err := m.Timeout()
	if err != nil {
		return true, err
	}

	deadline := last + timeout.Milliseconds()
	return m.clk.Now().UnixMilli() >= deadline, nil
}

// Timeout returns the effective inactivity window: the user-chosen
// value from the durable store, or the default when absent or
// unreadable.
func (m *Monitor) Timeout() (time.Duration, error) {
	raw, ok, err := m.durable.Get(timeoutEntry)
	if err != nil {
		return 0, fmt.Errorf("session: failed to read lock timeout: %w", err)
	}
	if !ok {
		return m.defaultTimeout, nil
	}
	minutes, err := strconv.Atoi(string(raw))
	if err != nil || minutes <= 0 {
		return m.defaultTimeout, nil
	}
	return time.Duration(minutes) * time.Minute, nil
}

// SetTimeout persists the user-chosen inactivity window in minutes.
func (m *Monitor) SetTimeout(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("session: lock timeout must be positive, got %d", minutes)
	}
	if err := m.durable.Put(timeoutEntry, []byte(strconv.Itoa(minutes))); err != nil {
		return fmt.Errorf("session: failed to store lock timeout: %w", err)
	}
	return nil
}

// ClearActivity drops the recorded activity, forcing IsExpired to
// report true until the next successful unlock.
func (m *Monitor) ClearActivity() error {
	if err := m.volatile.Delete(activityEntry); err != nil {
		return fmt.Errorf("session: failed to clear activity: %w", err)
	}
	return nil
}
