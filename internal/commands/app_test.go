package commands_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
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

func openApp(t *testing.T, storage config.Storage) *commands.App {
	t.Helper()
	cfg := config.Default()
	cfg.Storage = storage

	app, err := commands.Open(context.Background(), commands.Options{
		Config: &cfg,
		Logger: zap.NewNop(),
		Host:   host.Noop{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func memoryApp(t *testing.T) *commands.App {
	return openApp(t, config.Storage{Backend: config.BackendMemory})
}

func save(t *testing.T, app *commands.App, name string) profiles.Profile {
	t.Helper()
	resp, err := app.Do(context.Background(), router.SaveProfile{Profile: profiles.Profile{Name: name}})
	require.NoError(t, err)
	require.NotNil(t, resp.Profile)
	return *resp.Profile
}

func TestOpen_StartsTrial(t *testing.T) {
	app := memoryApp(t)

	result, err := app.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, license.TierTrial, result.Capabilities.Tier)
	assert.Equal(t, config.BackendMemory, result.Backend)
	assert.Empty(t, result.Stored)
	assert.Nil(t, result.Current)
	assert.True(t, result.Settings.ShowNotifications)
}

func TestOpen_DesktopHost(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.Storage{Backend: config.BackendMemory}
	dir := t.TempDir()

	var out bytes.Buffer
	app, err := commands.Open(context.Background(), commands.Options{
		Config:     &cfg,
		Logger:     zap.NewNop(),
		HostDir:    dir,
		HostOutput: &out,
	})
	require.NoError(t, err)
	defer app.Close()

	desktop, ok := app.Host.(*host.Desktop)
	require.True(t, ok)

	ctx := context.Background()
	resp, err := app.Do(ctx, router.SaveProfile{Profile: profiles.Profile{
		Name:       "Work",
		Extensions: []profiles.ExtensionToggle{{ID: "adblock", Enabled: false}},
	}})
	require.NoError(t, err)

	_, err = app.Do(ctx, router.SwitchProfile{ProfileID: resp.Profile.ID})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Switched to Work")

	states, err := desktop.ExtensionStates()
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"adblock": false}, states)
}

func TestStatus_Current(t *testing.T) {
	app := memoryApp(t)
	ctx := context.Background()

	work := save(t, app, "Work")
	save(t, app, "Personal")

	_, err := app.Do(ctx, router.SwitchProfile{ProfileID: work.ID})
	require.NoError(t, err)

	result, err := app.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, result.Current)
	assert.Equal(t, work.ID, result.Current.ID)
	assert.Len(t, result.Stored, 2)
	assert.Equal(t, 2, result.Visible)
	assert.Zero(t, result.Hidden())
}

func TestExportImport(t *testing.T) {
	app := memoryApp(t)
	ctx := context.Background()

	save(t, app, "Work")
	save(t, app, "Personal")

	var buf bytes.Buffer
	doc, err := app.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ProfileCount)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	require.NoError(t, app.ClearAll(ctx))
	all, err := app.Profiles.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	imported, err := app.Import(ctx, &buf)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, "Work", imported[0].Name)
	assert.Equal(t, "Personal", imported[1].Name)
}

func TestImport_Malformed(t *testing.T) {
	app := memoryApp(t)

	_, err := app.Import(context.Background(), strings.NewReader(`{"profiles": 3}`))
	require.Error(t, err)

	var f *router.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, router.KindInvalidFormat, f.Kind)
}

func TestFileBackendPersists(t *testing.T) {
	storage := config.Storage{
		Backend: config.BackendFile,
		Path:    filepath.Join(t.TempDir(), "state.json"),
	}

	first := openApp(t, storage)
	p := save(t, first, "Work")
	require.NoError(t, first.Close())

	second := openApp(t, storage)
	got, err := second.Profiles.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", got.Name)
}

func TestExportFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "browser-profiles-2024-03-09.json", commands.ExportFileName(at))
}
