// Package settings persists user preferences next to the profile collection.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ruminaider/profilepop/internal/storage"
)

// ErrUnknownKey is returned by Set for a key that is not a setting.
var ErrUnknownKey = errors.New("unknown setting")

// ErrInvalidValue is returned when a value fails validation.
var ErrInvalidValue = errors.New("invalid setting value")

// Settings are the user's preferences.
type Settings struct {
	ShowNotifications bool   `json:"showNotifications"`
	EnableShortcuts   bool   `json:"enableShortcuts"`
	AutoSwitch        bool   `json:"autoSwitch"`
	SyncEnabled       bool   `json:"syncEnabled"`
	Theme             string `json:"theme" validate:"oneof=system light dark"`
	IconStyle         string `json:"iconStyle" validate:"oneof=initials emoji color"`
}

// Defaults returns the settings of a fresh install.
func Defaults() Settings {
	return Settings{
		ShowNotifications: true,
		Theme:             "system",
		IconStyle:         "initials",
	}
}

var validate = validator.New()

// Validate checks enum-valued settings.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, keyFor(fe.StructField()), strings.ReplaceAll(fe.Param(), " ", ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

// Values returns every setting as key/value strings, sorted by key.
func (s Settings) Values() [][2]string {
	m := map[string]string{
		"showNotifications": strconv.FormatBool(s.ShowNotifications),
		"enableShortcuts":   strconv.FormatBool(s.EnableShortcuts),
		"autoSwitch":        strconv.FormatBool(s.AutoSwitch),
		"syncEnabled":       strconv.FormatBool(s.SyncEnabled),
		"theme":             s.Theme,
		"iconStyle":         s.IconStyle,
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, m[k]}
	}
	return out
}

// With returns a copy of s with key set to value. Booleans accept anything
// strconv.ParseBool does.
func (s Settings) With(key, value string) (Settings, error) {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, key)
		}
		*dst = b
		return nil
	}

	var err error
	switch key {
	case "showNotifications":
		err = parseBool(&s.ShowNotifications)
	case "enableShortcuts":
		err = parseBool(&s.EnableShortcuts)
	case "autoSwitch":
		err = parseBool(&s.AutoSwitch)
	case "syncEnabled":
		err = parseBool(&s.SyncEnabled)
	case "theme":
		s.Theme = strings.ToLower(strings.TrimSpace(value))
	case "iconStyle":
		s.IconStyle = strings.ToLower(strings.TrimSpace(value))
	default:
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func keyFor(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// Store reads and writes Settings in the key-value store.
type Store struct {
	kv storage.Store
}

// NewStore constructor
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Load returns the stored settings with defaults filling any missing field.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	got := Defaults()
	if _, err := storage.GetJSON(ctx, s.kv, storage.KeySettings, &got); err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return got, nil
}

// Save validates and persists settings.
func (s *Store) Save(ctx context.Context, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := storage.SetJSON(ctx, s.kv, map[string]any{storage.KeySettings: st}); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Set updates a single setting.
func (s *Store) Set(ctx context.Context, key, value string) (Settings, error) {
	return s.update(ctx, func(cur Settings) (Settings, error) {
		return cur.With(key, value)
	})
}

// Merge overlays a partial settings object, as carried by export files, onto
// the stored settings.
func (s *Store) Merge(ctx context.Context, raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 {
		return s.Load(ctx)
	}
	return s.update(ctx, func(cur Settings) (Settings, error) {
		if err := json.Unmarshal(raw, &cur); err != nil {
			return Settings{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return cur, nil
	})
}

func (s *Store) update(ctx context.Context, fn func(cur Settings) (Settings, error)) (Settings, error) {
	var next Settings
	err := s.kv.Update(ctx, func(raw map[string][]byte) (map[string][]byte, error) {
		cur := Defaults()
		if v, ok := raw[storage.KeySettings]; ok {
			if err := json.Unmarshal(v, &cur); err != nil {
				return nil, fmt.Errorf("loading settings: %w", err)
			}
		}
		var err error
		if next, err = fn(cur); err != nil {
			return nil, err
		}
		if err := next.Validate(); err != nil {
			return nil, err
		}
		return storage.EncodeJSON(map[string]any{storage.KeySettings: next})
	}, storage.KeySettings)
	if err != nil {
		return Settings{}, err
	}
	return next, nil
}
