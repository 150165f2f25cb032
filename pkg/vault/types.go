package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaultguard/vaultguard/pkg/crypto"
)

// UndecryptableName is the placeholder shown for a secret whose
// payload failed authentication. The listing degrades per secret
// instead of aborting.
const UndecryptableName = "(undecryptable)"

// EncryptedSecret is a secret record as delivered by the transport
// collaborator. Immutable once fetched.
type EncryptedSecret struct {
	ID         string
	Label      string // optional cleartext label
	Ciphertext []byte
	Nonce      []byte
}

// DecryptedSecret is the in-memory-only decrypted form of a secret.
// Never persisted; reconstructed on every refresh.
type DecryptedSecret struct {
	ID       string
	Name     string
	Username string
	Password string
	URL      string // registered site, drives the domain match on fill
	// Undecryptable marks a placeholder produced when authentication
	// failed for this record.
	Undecryptable bool
}

// Transport is the network collaborator: it authenticates the user,
// serves the account salt, and lists the stored secret records. The
// core treats it as a black box.
type Transport interface {
	Salt(ctx context.Context) ([]byte, error)
	Secrets(ctx context.Context) ([]EncryptedSecret, error)
}

// Filler is the messaging collaborator that delivers plaintext
// credentials to the currently active page.
type Filler interface {
	Fill(username, password string) error
}

// secretPayload is the JSON plaintext sealed inside a secret record.
type secretPayload struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`
}

// SealSecret encrypts a secret's fields into an EncryptedSecret using
// the given session key. Hosts use it when creating secrets locally
// before handing them to the transport.
func SealSecret(key []byte, secret DecryptedSecret) (EncryptedSecret, error) {
	payload, err := json.Marshal(secretPayload{
		Name:     secret.Name,
		Username: secret.Username,
		Password: secret.Password,
		URL:      secret.URL,
	})
	if err != nil {
		return EncryptedSecret{}, fmt.Errorf("vault: failed to marshal secret: %w", err)
	}
	defer crypto.SecureWipe(payload)

	ciphertext, nonce, err := crypto.Encrypt(key, payload)
	if err != nil {
		return EncryptedSecret{}, err
	}
	return EncryptedSecret{
		ID:         secret.ID,
		Label:      secret.Name,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}, nil
}

// openSecret decrypts a record into its in-memory form.
func openSecret(key []byte, rec EncryptedSecret) (DecryptedSecret, error) {
	plaintext, err := crypto.Decrypt(key, rec.Ciphertext, rec.Nonce)
	if err != nil {
		return DecryptedSecret{}, err
	}
	defer crypto.SecureWipe(plaintext)

	var payload secretPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return DecryptedSecret{}, fmt.Errorf("vault: corrupt secret payload: %w", err)
	}
	return DecryptedSecret{
		ID:       rec.ID,
		Name:     payload.Name,
		Username: payload.Username,
		Password: payload.Password,
		URL:      payload.URL,
	}, nil
}

// placeholder builds the undecryptable stand-in for a record.
func placeholder(rec EncryptedSecret) DecryptedSecret {
	name := rec.Label
	if name == "" {
		name = UndecryptableName
	}
	return DecryptedSecret{
		ID:            rec.ID,
		Name:          name,
		Undecryptable: true,
	}
}
