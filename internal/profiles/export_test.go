package profiles_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newStore(t)
	seed(t, src, "Work", "Personal")

	withExtras := profiles.Profile{
		Name:  "Themed",
		Color: "#123456",
		Icon:  "🎨",
		Theme: &profiles.Theme{
			Colors: map[string]any{"frame": "#101010"},
			Images: map[string]string{"theme_frame": "frame.png"},
		},
		Extensions: []profiles.ExtensionToggle{{ID: "ublock", Enabled: false}},
		IsDefault:  true,
	}
	_, err := src.Save(ctx, withExtras, 0)
	require.NoError(t, err)
	_, err = src.Switch(ctx, mustAll(t, src)[0].ID)
	require.NoError(t, err)

	doc, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, profiles.ExportVersion, doc.Version)
	assert.Equal(t, 3, doc.ProfileCount)

	data, err := profiles.MarshalDocument(doc)
	require.NoError(t, err)

	dst, _ := newStore(t)
	seed(t, dst, "Will be replaced")
	imported, err := dst.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 3, imported.ProfileCount)

	assert.Equal(t, mustAll(t, src), mustAll(t, dst))
}

func TestExportDocumentShape(t *testing.T) {
	s, _ := newStore(t)
	seed(t, s, "Work")

	doc, err := s.Export(context.Background())
	require.NoError(t, err)
	data, err := profiles.MarshalDocument(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "3.0.0", raw["version"])
	assert.Contains(t, raw, "exportDate")
	assert.EqualValues(t, 1, raw["profileCount"])
	assert.Len(t, raw["profiles"], 1)
}

func TestParseDocument(t *testing.T) {
	t.Run("legacy numeric ids and no version", func(t *testing.T) {
		doc, err := profiles.ParseDocument([]byte(`{
			"profiles": [
				{"id": 1700000000000, "name": "Work", "color": "#2196F3", "icon": "💼"}
			],
			"settings": {"showNotifications": false}
		}`))
		require.NoError(t, err)
		require.Len(t, doc.Profiles, 1)
		assert.Equal(t, profiles.ID("1700000000000"), doc.Profiles[0].ID)
		assert.JSONEq(t, `{"showNotifications": false}`, string(doc.Settings))
	})

	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{profiles`},
		{"missing profiles", `{"version": "3.0.0"}`},
		{"profiles not array", `{"profiles": {}}`},
		{"profile without name", `{"profiles": [{"color": "#fff"}]}`},
		{"bad id type", `{"profiles": [{"id": true, "name": "A"}]}`},
		{"bad version", `{"version": "three", "profiles": []}`},
		{"newer major version", `{"version": "4.0.0", "profiles": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := profiles.ParseDocument([]byte(tt.input))
			assert.ErrorIs(t, err, profiles.ErrInvalidFormat)
		})
	}

	t.Run("older version accepted", func(t *testing.T) {
		_, err := profiles.ParseDocument([]byte(`{"version": "2.1.0", "profiles": []}`))
		assert.NoError(t, err)
	})
}

func TestImportRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	seed(t, s, "Keep")

	_, err := s.Import(ctx, []byte(`{"profiles": [{"id": "a", "name": "A"}, {"id": "a", "name": "B"}]}`))
	require.ErrorIs(t, err, profiles.ErrInvalidFormat)
	assert.Equal(t, []string{"Keep"}, names(mustAll(t, s)))
}

func mustAll(t *testing.T, s *profiles.Store) []profiles.Profile {
	t.Helper()
	all, err := s.All(context.Background())
	require.NoError(t, err)
	return all
}
