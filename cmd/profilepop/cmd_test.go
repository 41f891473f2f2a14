package main

import (
	"context"
	"testing"
	"time"

	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/ruminaider/profilepop/internal/config"
	"github.com/ruminaider/profilepop/internal/host"
	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendMemory
	app, err := commands.Open(context.Background(), commands.Options{
		Config: &cfg,
		Logger: zap.NewNop(),
		Host:   host.Noop{},
	})
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	resp, err := app.Do(ctx, router.SaveProfile{Profile: profiles.Profile{Name: "Work"}})
	require.NoError(t, err)
	id := resp.Profile.ID

	p, err := resolveProfile(ctx, app, string(id))
	require.NoError(t, err)
	assert.Equal(t, "Work", p.Name)

	p, err = resolveProfile(ctx, app, "work")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	_, err = resolveProfile(ctx, app, "Gaming")
	assert.ErrorIs(t, err, profiles.ErrNotFound)
}

func TestTierLine(t *testing.T) {
	assert.Equal(t, "Pro", tierLine(license.Capabilities{Tier: license.TierPro}))
	assert.Equal(t, "Trial", tierLine(license.Capabilities{Tier: license.TierTrial}))
	assert.Equal(t, "Free (up to 5 profiles)", tierLine(license.Capabilities{Tier: license.TierFree, MaxProfiles: 5}))

	ends := time.Now().Add(72 * time.Hour)
	assert.Contains(t, tierLine(license.Capabilities{Tier: license.TierTrial, TrialEndsAt: &ends}), "Trial (ends ")
}

func TestLastUsed(t *testing.T) {
	assert.Equal(t, "never", lastUsed(profiles.Profile{}))

	at := time.Now().Add(-2 * time.Hour)
	assert.Equal(t, "2 hours ago", lastUsed(profiles.Profile{LastUsed: &at}))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"profile", "list"},
		{"profile", "templates"},
		{"profile", "discover"},
		{"license", "activate"},
		{"settings", "set"},
		{"export"},
		{"native"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
