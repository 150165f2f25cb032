// Package crypto provides the cryptographic primitives for the
// vaultguard core.
//
// This package implements AES-256-GCM authenticated encryption,
// PBKDF2-SHA256 key derivation, and the one-way PIN hash used by the
// PIN lock.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption
//   - PBKDF2-SHA256 key derivation (210,000 iterations by default)
//   - Cryptographically secure random nonce generation
//   - Secure memory wiping for sensitive data
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// Derivation and cipher parameters.
const (
	// DefaultIterations is the PBKDF2 iteration count (OWASP minimum
	// for PBKDF2-HMAC-SHA256). High enough that off-line brute force
	// of the master password is expensive.
	DefaultIterations = 210000

	// SaltLength is the required master-key salt length in bytes.
	SaltLength = 16

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12
)

// pinSalt is the fixed, extension-wide salt mixed into the PIN hash.
// The PIN hash is a fast re-authentication gate, not key material.
const pinSalt = "vaultguard-pin-v1"

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidSalt indicates the master-key salt is missing or not
	// 16 bytes. Callers treat this as "account misconfigured".
	ErrInvalidSalt = errors.New("crypto: invalid salt, must be 16 bytes")

	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// DeriveKey derives a 256-bit encryption key from a master password
// using PBKDF2-SHA256.
//
// Derivation is deterministic: identical (password, salt, iterations)
// inputs always yield the same key. The salt must be exactly
// SaltLength bytes of random data associated with the account; a
// malformed or absent salt returns ErrInvalidSalt rather than a
// silently weak key.
func DeriveKey(password, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltLength {
		return nil, ErrInvalidSalt
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key(password, salt, iterations, KeyLength, sha256.New), nil
}

// HashPIN computes the one-way hash stored for a numeric PIN:
// SHA-256 over the PIN concatenated with the fixed extension-wide
// salt, hex encoded.
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin + pinSalt))
	return hex.EncodeToString(sum[:])
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// The function generates a cryptographically secure random 12-byte
// nonce using crypto/rand; the nonce is never reused with the same key.
// The authentication tag is appended to the ciphertext.
//
// Returns:
//   - ciphertext: encrypted data with authentication tag
//   - nonce: 12-byte nonce (must be stored with ciphertext for decryption)
//   - err: ErrInvalidKeyLength if key is not 32 bytes
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	if len(key) != KeyLength {
		return nil, nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The function verifies the authentication tag before returning the
// plaintext. If ciphertext, nonce, or key do not match exactly,
// ErrDecryptionFailed is returned; corrupted plaintext is never
// returned.
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
// This is critical for destroying master-password and key material on
// every exit path.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
