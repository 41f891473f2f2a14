package license

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruminaider/profilepop/internal/storage"
	"github.com/zalando/go-keyring"
)

// KeyVault keeps the activated license key.
type KeyVault interface {
	StoreKey(ctx context.Context, key string) error
	// LoadKey returns "" when no key is stored.
	LoadKey(ctx context.Context) (string, error)
	DeleteKey(ctx context.Context) error
}

// StorageVault keeps the key alongside the rest of the state.
type StorageVault struct {
	kv storage.Store
}

// NewStorageVault constructor
func NewStorageVault(kv storage.Store) *StorageVault {
	return &StorageVault{kv: kv}
}

func (v *StorageVault) StoreKey(ctx context.Context, key string) error {
	return storage.SetJSON(ctx, v.kv, map[string]any{storage.KeyLicenseKey: key})
}

func (v *StorageVault) LoadKey(ctx context.Context) (string, error) {
	var key string
	if _, err := storage.GetJSON(ctx, v.kv, storage.KeyLicenseKey, &key); err != nil {
		return "", err
	}
	return key, nil
}

func (v *StorageVault) DeleteKey(ctx context.Context) error {
	return v.kv.Remove(ctx, storage.KeyLicenseKey)
}

const keyringUser = "license"

// KeyringVault keeps the key in the OS credential store.
type KeyringVault struct {
	service string
}

// NewKeyringVault returns a vault storing under the given keyring service.
func NewKeyringVault(service string) *KeyringVault {
	return &KeyringVault{service: service}
}

func (v *KeyringVault) StoreKey(_ context.Context, key string) error {
	if err := keyring.Set(v.service, keyringUser, key); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

func (v *KeyringVault) LoadKey(_ context.Context) (string, error) {
	key, err := keyring.Get(v.service, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return key, nil
}

func (v *KeyringVault) DeleteKey(_ context.Context) error {
	err := keyring.Delete(v.service, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting keyring entry: %w", err)
	}
	return nil
}
