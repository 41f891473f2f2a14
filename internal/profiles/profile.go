package profiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when a profile id does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrLimitExceeded is returned when inserting past the tier's profile cap.
	ErrLimitExceeded = errors.New("profile limit reached")
	// ErrInvalidFormat is returned for import documents that fail the schema
	// check or carry duplicate ids.
	ErrInvalidFormat = errors.New("invalid profile document")
	// ErrInvalidProfile is returned when a profile's fields fail validation.
	ErrInvalidProfile = errors.New("invalid profile")
)

// ID identifies a profile. Older exports used numeric millisecond ids; those
// decode into their decimal string form.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("profile id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Profile is a named configuration bundle the user can switch into.
type Profile struct {
	ID         ID                `json:"id"`
	Name       string            `json:"name" validate:"required"`
	Color      string            `json:"color" validate:"required,iscolor"`
	Icon       string            `json:"icon,omitempty"`
	Theme      *Theme            `json:"theme,omitempty"`
	Extensions []ExtensionToggle `json:"extensions,omitempty" validate:"dive"`
	IsDefault  bool              `json:"isDefault,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	LastUsed   *time.Time        `json:"lastUsed,omitempty"`
}

// Theme describes the browser theme applied when switching into a profile.
// Reset restores the platform default and ignores the other fields.
type Theme struct {
	Reset      bool              `json:"reset,omitempty"`
	Colors     map[string]any    `json:"colors,omitempty"`
	Images     map[string]string `json:"images,omitempty"`
	Properties map[string]any    `json:"properties,omitempty"`
}

// ExtensionToggle enables or disables one browser extension on switch.
type ExtensionToggle struct {
	ID      string `json:"id" validate:"required"`
	Enabled bool   `json:"enabled"`
}

// Palette is the set of colors handed out to profiles created without one.
var Palette = []string{
	"#F44336", "#E91E63", "#9C27B0", "#673AB7", "#3F51B5",
	"#2196F3", "#03A9F4", "#00BCD4", "#009688", "#4CAF50",
	"#8BC34A", "#CDDC39", "#FFC107", "#FF9800", "#FF5722",
}

var validate = validator.New()

// Validate checks the profile's fields and returns ErrInvalidProfile naming
// every failing field.
func Validate(p Profile) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Profile.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "iscolor":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a color", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(msgs, "; "))
}

// normalize trims user input and fills a color when none was given. The color
// is picked by position so a fresh collection gets distinct colors.
func normalize(p Profile, position int) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Icon = strings.TrimSpace(p.Icon)
	p.Color = strings.TrimSpace(p.Color)
	if p.Color == "" {
		p.Color = Palette[position%len(Palette)]
	}
	return p
}

// Initial returns the uppercase first letter of the profile name, used by the
// "initials" icon style.
func Initial(p Profile) string {
	for _, r := range p.Name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
