package main

import (
	"context"
	"errors"

	"github.com/vaultguard/vaultguard/pkg/store"
	"github.com/vaultguard/vaultguard/pkg/vault"
)

const saltEntry = "account_salt"

// errNotInitialized is returned before `vaultguard init` has run.
var errNotInitialized = errors.New("account not initialized, run `vaultguard init` first")

// localTransport serves the account salt from the durable store and
// secret records from the local cache. It stands where a sync backend
// would sit in a networked deployment.
type localTransport struct {
	durable *store.Bolt
	cache   *vault.Cache
}

func (t *localTransport) Salt(context.Context) ([]byte, error) {
	salt, ok, err := t.durable.Get(saltEntry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInitialized
	}
	return salt, nil
}

func (t *localTransport) Secrets(context.Context) ([]vault.EncryptedSecret, error) {
	return t.cache.List()
}
