package license_test

import (
	"context"
	"testing"

	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestVaults(t *testing.T) {
	keyring.MockInit()

	vaults := map[string]license.KeyVault{
		"storage": license.NewStorageVault(storage.NewMemoryStore()),
		"keyring": license.NewKeyringVault("profilepop-test"),
	}

	for name, v := range vaults {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			key, err := v.LoadKey(ctx)
			require.NoError(t, err)
			assert.Empty(t, key)

			require.NoError(t, v.StoreKey(ctx, "ABC-123"))
			key, err = v.LoadKey(ctx)
			require.NoError(t, err)
			assert.Equal(t, "ABC-123", key)

			require.NoError(t, v.DeleteKey(ctx))
			key, err = v.LoadKey(ctx)
			require.NoError(t, err)
			assert.Empty(t, key)

			// Deleting twice is fine.
			require.NoError(t, v.DeleteKey(ctx))
		})
	}
}

func TestGate_UsesKeyringVault(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	g, kv, _ := newGate(t, license.WithVault(license.NewKeyringVault("profilepop-gate")))
	_, err := g.Activate(ctx, "KEY-9")
	require.NoError(t, err)

	stored, err := keyring.Get("profilepop-gate", "license")
	require.NoError(t, err)
	assert.Equal(t, "KEY-9", stored)

	got, err := kv.Get(ctx, storage.KeyLicenseKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}
