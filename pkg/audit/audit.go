// Package audit provides a security event log with an HMAC chain for
// tamper detection. Destructive wipes and failed unlock attempts must
// be clearly reported; this log is their durable record.
package audit

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Operation types for audit logging.
const (
	OpLogin         = "session.login"
	OpLoginFailed   = "session.login_failed"
	OpLogout        = "session.logout"
	OpPINSet        = "pin.set"
	OpPINVerify     = "pin.verify"
	OpPINFailed     = "pin.verify_failed"
	OpPINLockout    = "pin.lockout"
	OpWipe          = "pin.destructive_wipe"
	OpSecretDecrypt = "secret.decrypt_failed"
	OpClipboardCopy = "clipboard.copy"
	OpFill          = "fill.request"
	OpFillBlocked   = "fill.blocked"
)

// Result indicates the outcome of an operation.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDenied  = "denied"
)

// FileName is the log file created under the audit directory.
const FileName = "events.jsonl"

// hkdfInfo binds the chain key derivation to this log's purpose.
const hkdfInfo = "vaultguard-audit-v1"

// Event is a single audit record.
type Event struct {
	Version   int    `json:"v"`
	ID        string `json:"id"`
	Timestamp string `json:"ts"` // RFC 3339 nanosecond precision
	Operation string `json:"op"`
	Result    string `json:"result"`
	Detail    string `json:"detail,omitempty"`
	Chain     Chain  `json:"chain"`
}

// Chain links an event to its predecessor for tamper detection.
type Chain struct {
	Prev string `json:"prev"` // previous event's HMAC, "" for the first
	HMAC string `json:"hmac"`
}

// Logger appends HMAC-chained events to a JSONL file. Logging is
// best-effort and inert until SetHMACKey supplies key material; the
// security flow never fails because the audit trail could not be
// written.
type Logger struct {
	mu       sync.Mutex
	path     string
	hmacKey  []byte
	lastHMAC string
}

// NewLogger returns a Logger writing under dir.
func NewLogger(dir string) *Logger {
	return &Logger{path: filepath.Join(dir, FileName)}
}

// SetHMACKey derives the chain key from the session key via
// HKDF-SHA256 and resumes the chain from the existing log tail.
func (l *Logger) SetHMACKey(sessionKey []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sessionKey, nil, []byte(hkdfInfo)), key); err != nil {
		return fmt.Errorf("audit: failed to derive hmac key: %w", err)
	}
	l.hmacKey = key

	last, err := lastChainHMAC(l.path)
	if err != nil {
		return err
	}
	l.lastHMAC = last
	return nil
}

// Log appends an event. A Logger without key material silently drops
// events.
func (l *Logger) Log(op, result, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return nil
	}

	event := Event{
		Version:   1,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Operation: op,
		Result:    result,
		Detail:    detail,
	}
	event.Chain.Prev = l.lastHMAC
	event.Chain.HMAC = l.sign(&event)

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("audit: failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("audit: failed to open log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: failed to append event: %w", err)
	}

	l.lastHMAC = event.Chain.HMAC
	return nil
}

// LogSuccess appends a success event.
func (l *Logger) LogSuccess(op, detail string) error {
	return l.Log(op, ResultSuccess, detail)
}

// LogError appends an error event.
func (l *Logger) LogError(op, detail string) error {
	return l.Log(op, ResultError, detail)
}

// Verify walks the log file and checks every event's HMAC and chain
// linkage. It returns the number of valid events.
func (l *Logger) Verify() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hmacKey == nil {
		return 0, fmt.Errorf("audit: no hmac key set")
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("audit: failed to open log: %w", err)
	}
	defer f.Close()

	count := 0
	prev := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return count, fmt.Errorf("audit: corrupt event at line %d: %w", count+1, err)
		}
		if event.Chain.Prev != prev {
			return count, fmt.Errorf("audit: broken chain at line %d", count+1)
		}
		if l.sign(&event) != event.Chain.HMAC {
			return count, fmt.Errorf("audit: hmac mismatch at line %d", count+1)
		}
		prev = event.Chain.HMAC
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("audit: failed to read log: %w", err)
	}
	return count, nil
}

// sign computes the HMAC over the event's identifying fields and its
// predecessor link.
func (l *Logger) sign(event *Event) string {
	mac := hmac.New(sha256.New, l.hmacKey)
	fmt.Fprintf(mac, "%d|%s|%s|%s|%s|%s|%s",
		event.Version, event.ID, event.Timestamp,
		event.Operation, event.Result, event.Detail,
		event.Chain.Prev)
	return hex.EncodeToString(mac.Sum(nil))
}

// lastChainHMAC returns the HMAC of the final event in the log file,
// or "" when the file is absent or empty.
func lastChainHMAC(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("audit: failed to open log: %w", err)
	}
	defer f.Close()

	last := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		last = event.Chain.HMAC
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("audit: failed to read log: %w", err)
	}
	return last, nil
}
