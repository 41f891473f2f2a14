package router_test

import (
	"encoding/json"
	"testing"

	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	reqs := []router.Request{
		router.GetProfiles{},
		router.SwitchProfile{ProfileID: "abc"},
		router.SaveProfile{Profile: profiles.Profile{ID: "x", Name: "Work", Color: "#2196F3"}},
		router.DeleteProfile{ProfileID: "abc"},
		router.CheckLicense{},
		router.PurchasePro{},
		router.QuickSwitch{Slot: 2},
		router.ExportProfiles{},
		router.ImportProfiles{Document: json.RawMessage(`{"profiles":[]}`)},
		router.ActivateLicense{Key: "K"},
		router.ResetProfiles{},
	}
	for _, req := range reqs {
		t.Run(string(router.ActionOf(req)), func(t *testing.T) {
			data, err := router.Encode(req)
			require.NoError(t, err)

			var env map[string]any
			require.NoError(t, json.Unmarshal(data, &env))
			assert.Equal(t, string(router.ActionOf(req)), env["action"])

			got, err := router.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, router.ActionOf(req), router.ActionOf(got))
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	data, err := router.Encode(router.QuickSwitch{Slot: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"quickSwitch","slot":3}`, string(data))

	data, err = router.Encode(router.GetProfiles{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"getProfiles"}`, string(data))
}

func TestDecode(t *testing.T) {
	t.Run("legacy numeric profile id", func(t *testing.T) {
		req, err := router.Decode([]byte(`{"action":"switchProfile","profileId":1700000000000}`))
		require.NoError(t, err)
		assert.Equal(t, router.SwitchProfile{ProfileID: "1700000000000"}, req)
	})

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", `{`, router.ErrMalformed},
		{"missing action", `{"profileId":"x"}`, router.ErrMalformed},
		{"unknown action", `{"action":"syncBookmarks"}`, router.ErrUnknownAction},
		{"wrong field type", `{"action":"quickSwitch","slot":"two"}`, router.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := router.Decode([]byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want router.Kind
	}{
		{profiles.ErrNotFound, router.KindNotFound},
		{profiles.ErrLimitExceeded, router.KindLimitExceeded},
		{router.ErrProRequired, router.KindLimitExceeded},
		{profiles.ErrInvalidProfile, router.KindInvalidProfile},
		{profiles.ErrInvalidFormat, router.KindInvalidFormat},
		{license.ErrInvalidKey, router.KindInvalidFormat},
		{license.ErrExternal, router.KindExternalFailure},
		{router.ErrUnknownAction, router.KindUnknownAction},
		{assert.AnError, router.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := router.Classify(tt.err)
			assert.Equal(t, tt.want, f.Kind)
			assert.NotEmpty(t, f.Message)
		})
	}

	existing := &router.Failure{Kind: router.KindNotFound, Message: "gone"}
	assert.Same(t, existing, router.Classify(existing))
}

func TestResponse_WireShape(t *testing.T) {
	isPro := false
	data, err := json.Marshal(router.Response{Success: true, IsPro: &isPro})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"isPro":false}`, string(data))

	data, err = json.Marshal(router.Response{Error: &router.Failure{Kind: router.KindNotFound, Message: "Profile not found."}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"kind":"NotFound","message":"Profile not found."}}`, string(data))
}
