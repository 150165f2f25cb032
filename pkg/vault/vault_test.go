package vault

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vaultguard/vaultguard/pkg/clipboard"
	"github.com/vaultguard/vaultguard/pkg/clock"
	"github.com/vaultguard/vaultguard/pkg/crypto"
	"github.com/vaultguard/vaultguard/pkg/pinlock"
	"github.com/vaultguard/vaultguard/pkg/session"
	"github.com/vaultguard/vaultguard/pkg/store"
)

const testIterations = 1000

// fakeTransport serves a fixed salt and record set.
type fakeTransport struct {
	salt    []byte
	saltErr error
	records []EncryptedSecret
}

func (f *fakeTransport) Salt(context.Context) ([]byte, error) {
	return f.salt, f.saltErr
}

func (f *fakeTransport) Secrets(context.Context) ([]EncryptedSecret, error) {
	return f.records, nil
}

// fakeFiller records the last delivered credentials.
type fakeFiller struct {
	username string
	password string
	calls    int
}

func (f *fakeFiller) Fill(username, password string) error {
	f.username = username
	f.password = password
	f.calls++
	return nil
}

type testEnv struct {
	core      *Core
	clk       *clock.Manual
	transport *fakeTransport
	clip      *clipboard.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	durable := store.NewMemory()
	volatile := store.NewMemory()
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	keys := session.NewKeyCache(volatile, testIterations)
	monitor := session.NewMonitor(volatile, durable, clk, 5*time.Minute)
	pins := pinlock.NewGuard(durable, keys, clk, 0, 0)
	transport := &fakeTransport{salt: bytes.Repeat([]byte{0x5a}, crypto.SaltLength)}
	clip := clipboard.NewMemory()

	core := New(Deps{
		Keys:         keys,
		Monitor:      monitor,
		Pins:         pins,
		Clipboard:    clipboard.NewManager(clip),
		Transport:    transport,
		ClipboardTTL: 50 * time.Millisecond,
	})
	return &testEnv{core: core, clk: clk, transport: transport, clip: clip}
}

// login performs a successful login and returns the session key.
func (e *testEnv) login(t *testing.T) []byte {
	t.Helper()
	if err := e.core.Login(context.Background(), []byte("correct horse battery")); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	// Re-derive for sealing fixtures; Login wipes its own buffers.
	key, err := crypto.DeriveKey([]byte("correct horse battery"), e.transport.salt, testIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return key
}

func sealFixture(t *testing.T, key []byte, secret DecryptedSecret) EncryptedSecret {
	t.Helper()
	rec, err := SealSecret(key, secret)
	if err != nil {
		t.Fatalf("SealSecret() error = %v", err)
	}
	return rec
}

func TestLoginRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)
	err := env.core.Login(context.Background(), []byte("short"))
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Login() error = %v, want ErrPasswordTooShort", err)
	}
}

func TestLoginWipesPasswordBuffer(t *testing.T) {
	env := newTestEnv(t)
	password := []byte("correct horse battery")
	if err := env.core.Login(context.Background(), password); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	for i, b := range password {
		if b != 0 {
			t.Fatalf("password byte %d = %x, want wiped to 0", i, b)
		}
	}
}

func TestLoginMisconfiguredSalt(t *testing.T) {
	env := newTestEnv(t)
	env.transport.salt = []byte("too-short")
	err := env.core.Login(context.Background(), []byte("correct horse battery"))
	if !errors.Is(err, crypto.ErrInvalidSalt) {
		t.Errorf("Login() with malformed salt error = %v, want ErrInvalidSalt", err)
	}
}

func TestUnlockedLifecycle(t *testing.T) {
	env := newTestEnv(t)

	unlocked, err := env.core.Unlocked()
	if err != nil {
		t.Fatalf("Unlocked() error = %v", err)
	}
	if unlocked {
		t.Error("Unlocked() before login should be false")
	}

	env.login(t)
	unlocked, err = env.core.Unlocked()
	if err != nil {
		t.Fatalf("Unlocked() error = %v", err)
	}
	if !unlocked {
		t.Error("Unlocked() after login should be true")
	}

	if err := env.core.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	unlocked, err = env.core.Unlocked()
	if err != nil {
		t.Fatalf("Unlocked() error = %v", err)
	}
	if unlocked {
		t.Error("Unlocked() after logout should be false")
	}
}

func TestDecryptSecretsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	key := env.login(t)

	records := []EncryptedSecret{
		sealFixture(t, key, DecryptedSecret{
			ID: "a", Name: "Bank", Username: "alice", Password: "pw-1", URL: "https://bank.com",
		}),
		sealFixture(t, key, DecryptedSecret{
			ID: "b", Name: "Mail", Username: "alice@mail", Password: "pw-2", URL: "https://mail.com",
		}),
	}

	secrets, err := env.core.DecryptSecrets(records)
	if err != nil {
		t.Fatalf("DecryptSecrets() error = %v", err)
	}
	if len(secrets) != 2 {
		t.Fatalf("DecryptSecrets() returned %d secrets, want 2", len(secrets))
	}
	if secrets[0].Name != "Bank" || secrets[0].Password != "pw-1" {
		t.Errorf("DecryptSecrets()[0] = %+v, want Bank/pw-1", secrets[0])
	}
	if secrets[1].Username != "alice@mail" {
		t.Errorf("DecryptSecrets()[1].Username = %q, want alice@mail", secrets[1].Username)
	}
}

func TestDecryptSecretsDegradesPerRecord(t *testing.T) {
	env := newTestEnv(t)
	key := env.login(t)

	good := sealFixture(t, key, DecryptedSecret{
		ID: "good", Name: "Bank", Password: "pw", URL: "https://bank.com",
	})
	bad := sealFixture(t, key, DecryptedSecret{ID: "bad", Name: "Broken"})
	bad.Ciphertext[0] ^= 0xff
	unlabeled := sealFixture(t, key, DecryptedSecret{ID: "anon"})
	unlabeled.Label = ""
	unlabeled.Nonce[0] ^= 0xff

	secrets, err := env.core.DecryptSecrets([]EncryptedSecret{good, bad, unlabeled})
	if err != nil {
		t.Fatalf("DecryptSecrets() error = %v", err)
	}
	if len(secrets) != 3 {
		t.Fatalf("DecryptSecrets() returned %d secrets, want 3", len(secrets))
	}
	if secrets[0].Undecryptable {
		t.Error("intact record should decrypt")
	}
	if !secrets[1].Undecryptable || secrets[1].Name != "Broken" {
		t.Errorf("tampered record = %+v, want placeholder keeping its label", secrets[1])
	}
	if !secrets[2].Undecryptable || secrets[2].Name != UndecryptableName {
		t.Errorf("unlabeled tampered record = %+v, want %q placeholder", secrets[2], UndecryptableName)
	}
	if secrets[1].Password != "" {
		t.Error("placeholder must not carry plaintext")
	}
}

func TestDecryptSecretsRequiresUnlock(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.core.DecryptSecrets(nil); !errors.Is(err, ErrLocked) {
		t.Errorf("DecryptSecrets() before login error = %v, want ErrLocked", err)
	}

	env.login(t)
	env.clk.Advance(5 * time.Minute)
	if _, err := env.core.DecryptSecrets(nil); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("DecryptSecrets() after expiry error = %v, want ErrSessionExpired", err)
	}
}

func TestFillMatchingDomain(t *testing.T) {
	env := newTestEnv(t)
	key := env.login(t)
	rec := sealFixture(t, key, DecryptedSecret{
		ID: "a", Name: "Bank", Username: "alice", Password: "pw", URL: "https://bank.com",
	})

	filler := &fakeFiller{}
	match, err := env.core.Fill("https://bank.com/login", rec, filler, false)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if !match.IsMatch {
		t.Error("Fill() match = false, want true")
	}
	if filler.username != "alice" || filler.password != "pw" {
		t.Errorf("Fill() delivered %q/%q, want alice/pw", filler.username, filler.password)
	}
}

func TestFillBlocksMismatchedDomain(t *testing.T) {
	env := newTestEnv(t)
	key := env.login(t)
	rec := sealFixture(t, key, DecryptedSecret{
		ID: "a", Name: "Bank", Username: "alice", Password: "pw", URL: "https://bank.com",
	})

	filler := &fakeFiller{}
	match, err := env.core.Fill("https://banc.com/login", rec, filler, false)
	if !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("Fill() error = %v, want ErrDomainMismatch", err)
	}
	if match.Warning == "" {
		t.Error("Fill() should surface the matcher warning")
	}
	if filler.calls != 0 {
		t.Error("Fill() must not deliver credentials on a blocked fill")
	}

	// Forced fill proceeds but still reports the warning.
	match, err = env.core.Fill("https://banc.com/login", rec, filler, true)
	if err != nil {
		t.Fatalf("Fill() forced error = %v", err)
	}
	if match.IsMatch {
		t.Error("forced Fill() should still report the mismatch")
	}
	if filler.calls != 1 {
		t.Error("forced Fill() should deliver credentials")
	}
}

func TestFillRequiresUnlock(t *testing.T) {
	env := newTestEnv(t)
	filler := &fakeFiller{}
	if _, err := env.core.Fill("https://bank.com", EncryptedSecret{}, filler, false); !errors.Is(err, ErrLocked) {
		t.Errorf("Fill() before login error = %v, want ErrLocked", err)
	}
}

func TestCopyPassword(t *testing.T) {
	env := newTestEnv(t)
	key := env.login(t)
	rec := sealFixture(t, key, DecryptedSecret{
		ID: "a", Name: "Bank", Username: "alice", Password: "pw-copy", URL: "https://bank.com",
	})

	if err := env.core.CopyPassword(rec); err != nil {
		t.Fatalf("CopyPassword() error = %v", err)
	}
	if got, _ := env.clip.ReadText(); got != "pw-copy" {
		t.Errorf("clipboard = %q, want pw-copy", got)
	}

	// The auto-clear fires after the configured TTL.
	time.Sleep(150 * time.Millisecond)
	if got, _ := env.clip.ReadText(); got != "" {
		t.Errorf("clipboard = %q after ttl, want cleared", got)
	}
}

func TestAddSecretSealsIntoCache(t *testing.T) {
	env := newTestEnv(t)
	cache := openTestCache(t)
	env.core.cache = cache
	key := env.login(t)

	rec, err := env.core.AddSecret(DecryptedSecret{
		ID: "new", Name: "Bank", Username: "alice", Password: "pw", URL: "https://bank.com",
	})
	if err != nil {
		t.Fatalf("AddSecret() error = %v", err)
	}
	if rec.Label != "Bank" {
		t.Errorf("AddSecret() label = %q, want Bank", rec.Label)
	}

	stored, ok, err := cache.Get("new")
	if err != nil || !ok {
		t.Fatalf("Get() after AddSecret = ok %v, err %v", ok, err)
	}
	secret, err := openSecret(key, stored)
	if err != nil {
		t.Fatalf("openSecret() error = %v", err)
	}
	if secret.Password != "pw" || secret.URL != "https://bank.com" {
		t.Errorf("round-tripped secret = %+v", secret)
	}
}

func TestPINFlowThroughCore(t *testing.T) {
	env := newTestEnv(t)

	// Setting a PIN without a session key is refused.
	if err := env.core.SetPIN("1234"); !errors.Is(err, pinlock.ErrNoSessionKey) {
		t.Fatalf("SetPIN() before login error = %v, want ErrNoSessionKey", err)
	}

	env.login(t)
	if err := env.core.SetPIN("1234"); err != nil {
		t.Fatalf("SetPIN() error = %v", err)
	}
	if ok, _ := env.core.HasPIN(); !ok {
		t.Fatal("HasPIN() should be true after SetPIN")
	}

	// Session expires; the correct PIN re-opens the window because the
	// key bytes are still cached.
	env.clk.Advance(5 * time.Minute)
	if _, err := env.core.DecryptSecrets(nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("DecryptSecrets() error = %v, want ErrSessionExpired", err)
	}
	res, err := env.core.VerifyPIN("1234")
	if err != nil {
		t.Fatalf("VerifyPIN() error = %v", err)
	}
	if res.Status != pinlock.StatusUnlocked {
		t.Fatalf("VerifyPIN() status = %v, want StatusUnlocked", res.Status)
	}
	if unlocked, _ := env.core.Unlocked(); !unlocked {
		t.Error("Unlocked() after PIN verify should be true")
	}

	// After logout the key is gone: correct PIN demands a fresh login.
	if err := env.core.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	res, err = env.core.VerifyPIN("1234")
	if err != nil {
		t.Fatalf("VerifyPIN() error = %v", err)
	}
	if res.Status != pinlock.StatusLoginRequired {
		t.Errorf("VerifyPIN() status = %v, want StatusLoginRequired", res.Status)
	}
}

func TestVerifyPINWipeSurfacesStatus(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	if err := env.core.SetPIN("1234"); err != nil {
		t.Fatalf("SetPIN() error = %v", err)
	}

	var res pinlock.VerifyResult
	var err error
	for n := 1; n <= pinlock.DefaultMaxAttempts; n++ {
		res, err = env.core.VerifyPIN("0000")
		if err != nil {
			t.Fatalf("VerifyPIN() failure %d error = %v", n, err)
		}
		env.clk.Advance(pinlock.DefaultMaxBackoff)
	}
	if res.Status != pinlock.StatusWiped {
		t.Errorf("VerifyPIN() status = %v, want StatusWiped", res.Status)
	}
	if ok, _ := env.core.HasPIN(); ok {
		t.Error("HasPIN() after wipe should be false")
	}
}

func TestClearSecurityData(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	if err := env.core.SetPIN("1234"); err != nil {
		t.Fatalf("SetPIN() error = %v", err)
	}

	if err := env.core.ClearSecurityData(); err != nil {
		t.Fatalf("ClearSecurityData() error = %v", err)
	}
	if ok, _ := env.core.HasPIN(); ok {
		t.Error("HasPIN() after clear should be false")
	}
	if unlocked, _ := env.core.Unlocked(); unlocked {
		t.Error("Unlocked() after clear should be false")
	}
}
