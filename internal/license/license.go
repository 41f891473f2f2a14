// Package license derives the user's capabilities from persisted license
// state and drives the purchase and activation flows.
package license

import (
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/storefront.go -package=mocks . Storefront

var (
	// ErrExternal wraps any failure reported by the storefront or caused by
	// it not answering in time.
	ErrExternal = errors.New("storefront request failed")
	// ErrUnavailable is returned by a Storefront when in-platform purchases
	// are not offered. Callers fall back to the external purchase page.
	ErrUnavailable = errors.New("storefront unavailable")
	// ErrPurchaseCancelled is returned by a Storefront when the user aborts.
	ErrPurchaseCancelled = errors.New("purchase cancelled")
	// ErrInvalidKey is returned when a license key is empty or rejected.
	ErrInvalidKey = errors.New("invalid license key")
)

// Tier is the license level the capabilities were derived from.
type Tier string

const (
	TierFree  Tier = "free"
	TierTrial Tier = "trial"
	TierPro   Tier = "pro"
)

// Features are the feature flags gated by the license.
type Features struct {
	Sync            bool `json:"sync"`
	Shortcuts       bool `json:"shortcuts"`
	ThemeSync       bool `json:"themeSync"`
	ExtensionToggle bool `json:"extensionToggle"`
	ExportImport    bool `json:"exportImport"`
}

// Capabilities is what the current license allows. MaxProfiles of zero means
// unlimited.
type Capabilities struct {
	Tier        Tier       `json:"tier"`
	MaxProfiles int        `json:"maxProfiles"`
	Features    Features   `json:"features"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
}

// IsPro reports whether the paid feature set is available, which holds for
// both the trial and a purchased license.
func (c Capabilities) IsPro() bool {
	return c.Tier == TierPro || c.Tier == TierTrial
}

// Unlimited reports whether profile creation is uncapped.
func (c Capabilities) Unlimited() bool {
	return c.MaxProfiles <= 0
}

func allFeatures() Features {
	return Features{
		Sync:            true,
		Shortcuts:       true,
		ThemeSync:       true,
		ExtensionToggle: true,
		ExportImport:    true,
	}
}

// PurchaseResult reports how a purchase completed. External means the caller
// must send the user to the purchase page and finish with Activate.
type PurchaseResult struct {
	External bool `json:"external"`
}
