// Package clipboard provides time-bounded exposure of copied secret
// values: every copy schedules a best-effort clear that only fires if
// the clipboard still holds what was copied.
package clipboard

import (
	"sync"
	"time"
)

// DefaultTTL is the default exposure window for copied secrets.
const DefaultTTL = 30 * time.Second

// ReadWriter is the system clipboard capability. The extension host
// supplies the real clipboard; tests supply Memory.
type ReadWriter interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Manager writes secret values to the clipboard and schedules their
// removal.
type Manager struct {
	cb ReadWriter
}

// NewManager returns a Manager over the given clipboard.
func NewManager(cb ReadWriter) *Manager {
	return &Manager{cb: cb}
}

// CopyWithAutoClear writes text to the clipboard and schedules a clear
// after ttl (DefaultTTL when ttl <= 0).
//
// The scheduled clear re-reads the clipboard first and only clears if
// the content still equals the originally written text, so something
// the user copied afterward is left untouched. The timer is
// fire-and-forget: a second copy does not cancel the first timer, the
// equality check makes the stale clear a no-op. Read failures are
// swallowed; clearing is best-effort, never fatal.
func (m *Manager) CopyWithAutoClear(text string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := m.cb.WriteText(text); err != nil {
		return err
	}

	time.AfterFunc(ttl, func() {
		current, err := m.cb.ReadText()
		if err != nil {
			return
		}
		if current == text {
			_ = m.cb.WriteText("")
		}
	})
	return nil
}

// Clear empties the clipboard immediately.
func (m *Manager) Clear() error {
	return m.cb.WriteText("")
}

// Memory is an in-process ReadWriter for tests and headless hosts.
type Memory struct {
	mu      sync.Mutex
	text    string
	readErr error
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

// ReadText returns the current clipboard text.
func (m *Memory) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.text, nil
}

// WriteText replaces the clipboard text.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// FailReads makes subsequent reads return err, simulating a
// permission-denied clipboard.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}
