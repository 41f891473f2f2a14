package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ruminaider/profilepop/internal/config"
	"github.com/ruminaider/profilepop/internal/storage"
	"go.uber.org/zap"
)

// Gate turns the persisted license keys into Capabilities. Read-modify-write
// cycles on license state run inside storage.Update.
type Gate struct {
	kv         storage.Store
	cfg        config.License
	storefront Storefront
	vault      KeyVault
	log        *zap.Logger
	now        func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithStorefront sets the in-platform store used for Check, Purchase and
// Activate. Without one, purchases always go external.
func WithStorefront(sf Storefront) Option {
	return func(g *Gate) { g.storefront = sf }
}

// WithVault overrides where activated license keys are kept.
func WithVault(v KeyVault) Option {
	return func(g *Gate) { g.vault = v }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gate) { g.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate returns a Gate reading license state from kv.
func NewGate(kv storage.Store, cfg config.License, opts ...Option) *Gate {
	g := &Gate{
		kv:    kv,
		cfg:   cfg,
		log:   zap.NewNop(),
		now:   func() time.Time { return time.Now().UTC() },
		vault: NewStorageVault(kv),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type state struct {
	installed    time.Time
	hasInstalled bool
	trialUsed    bool
	isPro        bool
}

var stateKeys = []string{storage.KeyInstalledDate, storage.KeyTrialUsed, storage.KeyIsPro}

// EnsureInstalled records the first-run state. Later calls leave existing
// state untouched and report false.
func (g *Gate) EnsureInstalled(ctx context.Context) (bool, error) {
	var first bool
	err := g.kv.Update(ctx, func(cur map[string][]byte) (map[string][]byte, error) {
		first = false
		st, err := decodeState(cur)
		if err != nil {
			return nil, err
		}
		if st.hasInstalled {
			return nil, nil
		}

		items := map[string]any{
			storage.KeyInstalledDate: g.now(),
			storage.KeyTrialUsed:     false,
			storage.KeyIsPro:         st.isPro,
		}
		if _, ok := cur[storage.KeyProfiles]; !ok {
			items[storage.KeyProfiles] = []any{}
		}
		first = true
		return storage.EncodeJSON(items)
	}, append(stateKeys, storage.KeyProfiles)...)
	if err != nil {
		return false, fmt.Errorf("recording install: %w", err)
	}

	if first {
		g.log.Info("first run recorded")
	}
	return first, nil
}

// Status derives the current Capabilities. A purchased license wins over any
// trial state. The trial runs for the configured period after install; once
// it lapses trialUsed is persisted and the user stays on the free tier.
func (g *Gate) Status(ctx context.Context) (Capabilities, error) {
	var (
		caps    Capabilities
		expired bool
		since   time.Time
	)
	err := g.kv.Update(ctx, func(cur map[string][]byte) (map[string][]byte, error) {
		expired = false
		st, err := decodeState(cur)
		if err != nil {
			return nil, err
		}

		if st.isPro {
			caps = Capabilities{Tier: TierPro, MaxProfiles: 0, Features: allFeatures()}
			return nil, nil
		}

		items := map[string]any{}
		if !st.hasInstalled {
			// State predates install tracking; start the clock now.
			st.installed = g.now()
			items[storage.KeyInstalledDate] = st.installed
		}

		caps = Capabilities{Tier: TierFree, MaxProfiles: g.cfg.FreeProfileLimit}
		if !st.trialUsed {
			ends := st.installed.Add(g.cfg.TrialPeriod())
			if !g.now().After(ends) {
				caps = Capabilities{Tier: TierTrial, MaxProfiles: 0, Features: allFeatures(), TrialEndsAt: &ends}
			} else {
				items[storage.KeyTrialUsed] = true
				expired, since = true, st.installed
			}
		}
		return storage.EncodeJSON(items)
	}, stateKeys...)
	if err != nil {
		return Capabilities{}, fmt.Errorf("updating license state: %w", err)
	}

	if expired {
		g.log.Info("trial expired", zap.Time("installed", since))
	}
	return caps, nil
}

// Check asks the storefront whether the product was bought, records a
// purchase it reports, and returns the resulting Capabilities. Storefront
// errors are logged and do not fail the check.
func (g *Gate) Check(ctx context.Context) (Capabilities, error) {
	if g.storefront != nil {
		active, err := g.queryStorefront(ctx)
		switch {
		case err != nil:
			g.log.Warn("license check against storefront failed", zap.Error(err))
		case active:
			if err := g.markPro(ctx); err != nil {
				return Capabilities{}, err
			}
		}
	}
	return g.Status(ctx)
}

func (g *Gate) queryStorefront(ctx context.Context) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.storefront.Active(ctx, g.cfg.SKU)
}

// Purchase runs the in-platform purchase flow. When the storefront is absent
// or unavailable the result asks the caller to use the external page.
func (g *Gate) Purchase(ctx context.Context) (PurchaseResult, error) {
	if g.storefront == nil {
		return PurchaseResult{External: true}, nil
	}

	tctx, cancel := g.withTimeout(ctx)
	defer cancel()

	err := g.storefront.Buy(tctx, g.cfg.SKU)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnavailable):
		g.log.Info("storefront unavailable, using external purchase page")
		return PurchaseResult{External: true}, nil
	case errors.Is(err, ErrPurchaseCancelled):
		return PurchaseResult{}, fmt.Errorf("%w: %w", ErrExternal, ErrPurchaseCancelled)
	default:
		return PurchaseResult{}, fmt.Errorf("%w: %v", ErrExternal, err)
	}

	if err := g.markPro(ctx); err != nil {
		return PurchaseResult{}, err
	}
	g.log.Info("purchase completed", zap.String("sku", g.cfg.SKU))
	return PurchaseResult{}, nil
}

// Activate finishes an external purchase with the key the user received.
// The key is checked with the storefront when one is configured and
// reachable, then kept in the vault.
func (g *Gate) Activate(ctx context.Context, key string) (Capabilities, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Capabilities{}, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}

	if g.storefront != nil {
		tctx, cancel := g.withTimeout(ctx)
		valid, err := g.storefront.Verify(tctx, key)
		cancel()
		switch {
		case errors.Is(err, ErrUnavailable):
			g.log.Info("storefront unavailable, accepting key without verification")
		case err != nil:
			return Capabilities{}, fmt.Errorf("%w: %v", ErrExternal, err)
		case !valid:
			return Capabilities{}, fmt.Errorf("%w: rejected by storefront", ErrInvalidKey)
		}
	}

	if err := g.vault.StoreKey(ctx, key); err != nil {
		return Capabilities{}, fmt.Errorf("storing license key: %w", err)
	}
	if err := g.markPro(ctx); err != nil {
		return Capabilities{}, err
	}
	return g.Status(ctx)
}

// LicenseKey returns the activated key, or "" when none was stored.
func (g *Gate) LicenseKey(ctx context.Context) (string, error) {
	return g.vault.LoadKey(ctx)
}

// Forget drops the stored license key. Other license state lives in the
// shared store and is removed with it.
func (g *Gate) Forget(ctx context.Context) error {
	return g.vault.DeleteKey(ctx)
}

func (g *Gate) markPro(ctx context.Context) error {
	if err := storage.SetJSON(ctx, g.kv, map[string]any{storage.KeyIsPro: true}); err != nil {
		return fmt.Errorf("recording purchase: %w", err)
	}
	return nil
}

func (g *Gate) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.RequestTimeout)
}

func decodeState(raw map[string][]byte) (state, error) {
	var st state
	if v, ok := raw[storage.KeyInstalledDate]; ok {
		if err := decodeInstalled(v, &st.installed); err != nil {
			return state{}, err
		}
		st.hasInstalled = true
	}
	if v, ok := raw[storage.KeyTrialUsed]; ok {
		if err := json.Unmarshal(v, &st.trialUsed); err != nil {
			return state{}, fmt.Errorf("decoding %s: %w", storage.KeyTrialUsed, err)
		}
	}
	if v, ok := raw[storage.KeyIsPro]; ok {
		if err := json.Unmarshal(v, &st.isPro); err != nil {
			return state{}, fmt.Errorf("decoding %s: %w", storage.KeyIsPro, err)
		}
	}
	return st, nil
}

// decodeInstalled accepts an RFC 3339 timestamp or, from older installs, a
// Unix millisecond number.
func decodeInstalled(raw []byte, t *time.Time) error {
	if err := json.Unmarshal(raw, t); err == nil {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return fmt.Errorf("decoding %s: %w", storage.KeyInstalledDate, err)
	}
	*t = time.UnixMilli(ms).UTC()
	return nil
}
