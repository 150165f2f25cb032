package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

// TestDeriveKey tests the PBKDF2 key derivation function
func TestDeriveKey(t *testing.T) {
	password := []byte("test-password-123")
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("failed to generate salt: %v", err)
	}

	// Test key derivation produces correct length
	key, err := DeriveKey(password, salt, DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if len(key) != KeyLength {
		t.Errorf("DeriveKey() returned key of length %d, want %d", len(key), KeyLength)
	}

	// Test same password + salt produces same key (deterministic)
	key2, err := DeriveKey(password, salt, DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if !bytes.Equal(key, key2) {
		t.Error("DeriveKey() with same inputs should produce identical keys")
	}

	// Test different password produces different key
	differentKey, err := DeriveKey([]byte("different-password"), salt, DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if bytes.Equal(key, differentKey) {
		t.Error("DeriveKey() with different password should produce different key")
	}

	// Test different salt produces different key
	differentSalt := make([]byte, SaltLength)
	if _, err := rand.Read(differentSalt); err != nil {
		t.Fatalf("failed to generate salt: %v", err)
	}
	differentKey, err = DeriveKey(password, differentSalt, DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if bytes.Equal(key, differentKey) {
		t.Error("DeriveKey() with different salt should produce different key")
	}
}

// TestDeriveKeyInvalidSalt verifies malformed salts are rejected
func TestDeriveKeyInvalidSalt(t *testing.T) {
	password := []byte("test-password")

	if _, err := DeriveKey(password, nil, DefaultIterations); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("DeriveKey() with nil salt error = %v, want ErrInvalidSalt", err)
	}
	if _, err := DeriveKey(password, []byte("short"), DefaultIterations); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("DeriveKey() with short salt error = %v, want ErrInvalidSalt", err)
	}
}

// TestDeriveKeyZeroIterations verifies the default iteration count is applied
func TestDeriveKeyZeroIterations(t *testing.T) {
	password := []byte("test-password")
	salt := make([]byte, SaltLength)

	key, err := DeriveKey(password, salt, 0)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	explicit, err := DeriveKey(password, salt, DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	if !bytes.Equal(key, explicit) {
		t.Error("DeriveKey() with 0 iterations should use DefaultIterations")
	}
}

// TestEncryptDecryptRoundTrip tests AES-256-GCM round trips
func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	plaintext := []byte("secret data to encrypt")

	ciphertext, nonce, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if len(nonce) != NonceLength {
		t.Errorf("Encrypt() nonce length = %d, want %d", len(nonce), NonceLength)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("Encrypt() ciphertext should not equal plaintext")
	}

	decrypted, err := Decrypt(key, ciphertext, nonce)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

// TestEncryptNonceUniqueness verifies each encryption uses a fresh nonce
func TestEncryptNonceUniqueness(t *testing.T) {
	key := make([]byte, KeyLength)
	plaintext := []byte("same plaintext")

	_, nonce1, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	_, nonce2, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(nonce1, nonce2) {
		t.Error("Encrypt() should generate a fresh nonce per call")
	}
}

// TestDecryptFailures verifies mismatched inputs surface ErrDecryptionFailed
func TestDecryptFailures(t *testing.T) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	plaintext := []byte("sensitive value")
	ciphertext, nonce, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Wrong key
	wrongKey := make([]byte, KeyLength)
	if _, err := rand.Read(wrongKey); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	if _, err := Decrypt(wrongKey, ciphertext, nonce); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong key error = %v, want ErrDecryptionFailed", err)
	}

	// Tampered ciphertext
	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xff
	if _, err := Decrypt(key, tampered, nonce); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with tampered ciphertext error = %v, want ErrDecryptionFailed", err)
	}

	// Wrong nonce
	wrongNonce := append([]byte(nil), nonce...)
	wrongNonce[0] ^= 0xff
	if _, err := Decrypt(key, ciphertext, wrongNonce); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong nonce error = %v, want ErrDecryptionFailed", err)
	}

	// Invalid key length
	if _, err := Decrypt(key[:16], ciphertext, nonce); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("Decrypt() with short key error = %v, want ErrInvalidKeyLength", err)
	}

	// Invalid nonce length
	if _, err := Decrypt(key, ciphertext, nonce[:8]); !errors.Is(err, ErrInvalidNonceLength) {
		t.Errorf("Decrypt() with short nonce error = %v, want ErrInvalidNonceLength", err)
	}

	// Ciphertext shorter than the GCM tag
	if _, err := Decrypt(key, []byte{0x01, 0x02}, nonce); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Decrypt() with short ciphertext error = %v, want ErrCiphertextTooShort", err)
	}
}

// TestHashPIN verifies PIN hashing is deterministic and distinguishing
func TestHashPIN(t *testing.T) {
	h1 := HashPIN("1234")
	h2 := HashPIN("1234")
	if h1 != h2 {
		t.Error("HashPIN() should be deterministic")
	}
	if HashPIN("1235") == h1 {
		t.Error("HashPIN() should differ for different PINs")
	}
	if h1 == "1234" {
		t.Error("HashPIN() must not return the PIN itself")
	}
}

// TestSecureWipe verifies sensitive data is overwritten
func TestSecureWipe(t *testing.T) {
	data := []byte("sensitive key material")
	SecureWipe(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("SecureWipe() byte %d = %x, want 0", i, b)
		}
	}
}
