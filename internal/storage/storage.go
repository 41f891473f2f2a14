// Package storage holds the key-value persisted state shared by the profile
// store and the license gate. Values are opaque bytes (JSON in practice); a
// single Set call is applied atomically by every backend, and Update gives a
// read-modify-write step that holds across processes sharing the backend.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Persisted keys.
const (
	KeyProfiles      = "profiles"
	KeyInstalledDate = "installedDate"
	KeyTrialUsed     = "trialUsed"
	KeyIsPro         = "isPro"
	KeyLicenseKey    = "licenseKey"
	KeySettings      = "settings"
)

// UpdateFunc receives the current values of the keys passed to Update
// (missing keys are absent) and returns the items to write. Returning no
// items writes nothing; returning an error aborts the update and is passed
// back to the caller unchanged.
type UpdateFunc func(cur map[string][]byte) (map[string][]byte, error)

// Store is a key-value area that survives restarts. Several processes (CLI
// invocations, native hosts, the server) may open the same backend at once.
type Store interface {
	// Get returns the values of the requested keys. Missing keys are absent
	// from the result map.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	// Set writes all items in one atomic step.
	Set(ctx context.Context, items map[string][]byte) error
	// Update reads keys, passes them to fn and writes its result with no
	// other writer in between, including writers in other processes. fn may
	// run more than once and must not have side effects.
	Update(ctx context.Context, fn UpdateFunc, keys ...string) error
	// Remove deletes keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
	// Clear deletes every key.
	Clear(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value at key into v. It reports whether the key existed.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	items, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes each value and writes them in one Set call.
func SetJSON(ctx context.Context, s Store, values map[string]any) error {
	items, err := EncodeJSON(values)
	if err != nil {
		return err
	}
	return s.Set(ctx, items)
}

// EncodeJSON marshals each value, for building the result of an UpdateFunc.
func EncodeJSON(values map[string]any) (map[string][]byte, error) {
	items := make(map[string][]byte, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		items[k] = data
	}
	return items, nil
}
