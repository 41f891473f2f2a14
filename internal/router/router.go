// Package router dispatches requests from UI contexts to the profile store
// and license gate and answers each with exactly one Response.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ruminaider/profilepop/internal/host"
	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/settings"
	"go.uber.org/zap"
)

// Router owns request dispatch. It holds no state of its own.
type Router struct {
	store       *profiles.Store
	gate        *license.Gate
	settings    *settings.Store
	host        host.Adapter
	events      EventPublisher
	purchaseURL string
	log         *zap.Logger
	now         func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithEvents sets where events are published.
func WithEvents(p EventPublisher) Option {
	return func(r *Router) { r.events = p }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Router) { r.log = log }
}

// WithPurchaseURL sets the page opened for external purchases.
func WithPurchaseURL(u string) Option {
	return func(r *Router) { r.purchaseURL = u }
}

// New returns a Router over the given components.
func New(store *profiles.Store, gate *license.Gate, st *settings.Store, adapter host.Adapter, opts ...Option) *Router {
	r := &Router{
		store:    store,
		gate:     gate,
		settings: st,
		host:     adapter,
		events:   nopPublisher{},
		log:      zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle runs req to completion and returns its Response. It never panics;
// a panicking handler yields an Internal failure.
func (r *Router) Handle(ctx context.Context, req Request) (resp Response) {
	if req == nil {
		return failure(fmt.Errorf("%w: empty request", ErrUnknownAction))
	}
	action := req.action()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("handler panicked", zap.String("action", string(action)), zap.Any("panic", p))
			resp = failure(fmt.Errorf("handling %s: panic: %v", action, p))
		}
	}()

	resp, err := r.dispatch(ctx, req)
	if err != nil {
		f := Classify(err)
		r.log.Info("request failed",
			zap.String("action", string(action)),
			zap.String("kind", string(f.Kind)),
			zap.Error(err),
		)
		return Response{Success: false, Error: f}
	}
	resp.Success = true
	return resp
}

// HandleRaw decodes a wire request and handles it. Undecodable input still
// gets a failure Response.
func (r *Router) HandleRaw(ctx context.Context, data []byte) Response {
	req, err := Decode(data)
	if err != nil {
		r.log.Info("rejected request", zap.Error(err))
		return failure(err)
	}
	return r.Handle(ctx, req)
}

// Send handles req asynchronously. The channel yields exactly one Response
// and is then closed.
func (r *Router) Send(ctx context.Context, req Request) <-chan Response {
	ch := make(chan Response, 1)
	go func() {
		defer close(ch)
		ch <- r.Handle(ctx, req)
	}()
	return ch
}

func (r *Router) dispatch(ctx context.Context, req Request) (Response, error) {
	switch req := req.(type) {
	case GetProfiles:
		return r.getProfiles(ctx)
	case SaveProfile:
		return r.saveProfile(ctx, req)
	case DeleteProfile:
		return r.deleteProfile(ctx, req)
	case SwitchProfile:
		return r.switchProfile(ctx, req)
	case QuickSwitch:
		return r.quickSwitch(ctx, req)
	case CheckLicense:
		return r.checkLicense(ctx)
	case PurchasePro:
		return r.purchasePro(ctx)
	case ActivateLicense:
		return r.activateLicense(ctx, req)
	case ExportProfiles:
		return r.exportProfiles(ctx)
	case ImportProfiles:
		return r.importProfiles(ctx, req)
	case ResetProfiles:
		return r.resetProfiles(ctx)
	}
	return Response{}, fmt.Errorf("%w: %T", ErrUnknownAction, req)
}

func (r *Router) getProfiles(ctx context.Context) (Response, error) {
	caps, err := r.gate.Status(ctx)
	if err != nil {
		return Response{}, err
	}
	list, err := r.store.List(ctx, caps.MaxProfiles)
	if err != nil {
		return Response{}, err
	}
	return listResponse(list), nil
}

func (r *Router) saveProfile(ctx context.Context, req SaveProfile) (Response, error) {
	caps, err := r.gate.Status(ctx)
	if err != nil {
		return Response{}, err
	}
	p, err := r.store.Save(ctx, req.Profile, caps.MaxProfiles)
	if err != nil {
		return Response{}, err
	}
	r.publish(ctx, Event{Type: EventProfilesChanged, Profile: &p})
	return Response{Profile: &p}, nil
}

func (r *Router) deleteProfile(ctx context.Context, req DeleteProfile) (Response, error) {
	if req.ProfileID == "" {
		return Response{}, fmt.Errorf("%w: profileId is required", ErrMalformed)
	}
	if err := r.store.Delete(ctx, req.ProfileID); err != nil {
		return Response{}, err
	}
	r.publish(ctx, Event{Type: EventProfilesChanged})
	return Response{}, nil
}

func (r *Router) switchProfile(ctx context.Context, req SwitchProfile) (Response, error) {
	id := req.ProfileID
	if id == "" && req.Profile != nil {
		id = req.Profile.ID
	}
	if id == "" {
		return Response{}, fmt.Errorf("%w: profileId is required", ErrMalformed)
	}

	caps, err := r.gate.Status(ctx)
	if err != nil {
		return Response{}, err
	}
	return r.switchTo(ctx, id, caps)
}

// quickSwitch serves the numbered shortcuts. Free users only get the first.
func (r *Router) quickSwitch(ctx context.Context, req QuickSwitch) (Response, error) {
	if req.Slot < 1 {
		return Response{}, fmt.Errorf("%w: slot must be 1 or greater", ErrMalformed)
	}

	caps, err := r.gate.Status(ctx)
	if err != nil {
		return Response{}, err
	}
	if !caps.Features.Shortcuts && req.Slot != 1 {
		r.notify(ctx, "Pro Feature", "Keyboard shortcuts are a Pro feature. Upgrade to unlock!")
		return Response{}, fmt.Errorf("%w: shortcut %d", ErrProRequired, req.Slot)
	}

	list, err := r.store.List(ctx, caps.MaxProfiles)
	if err != nil {
		return Response{}, err
	}
	if req.Slot > len(list) {
		return Response{}, fmt.Errorf("%w: no profile in slot %d", profiles.ErrNotFound, req.Slot)
	}
	return r.switchTo(ctx, list[req.Slot-1].ID, caps)
}

func (r *Router) switchTo(ctx context.Context, id profiles.ID, caps license.Capabilities) (Response, error) {
	p, err := r.store.Switch(ctx, id)
	if err != nil {
		return Response{}, err
	}
	r.applySideEffects(ctx, p, caps)
	r.publish(ctx, Event{Type: EventProfileSwitched, Profile: &p})
	return Response{Profile: &p}, nil
}

// applySideEffects runs the host actions for a switch. Host failures are
// logged and do not fail the switch.
func (r *Router) applySideEffects(ctx context.Context, p profiles.Profile, caps license.Capabilities) {
	prefs, err := r.settings.Load(ctx)
	if err != nil {
		r.log.Warn("loading settings for switch", zap.Error(err))
		prefs = settings.Defaults()
	}

	if prefs.ShowNotifications {
		r.notify(ctx, "Profile Switched", "Switched to "+p.Name)
	}

	if p.Theme != nil && caps.Features.ThemeSync {
		if p.Theme.Reset {
			err = r.host.ResetTheme(ctx)
		} else {
			err = r.host.ApplyTheme(ctx, *p.Theme)
		}
		if err != nil {
			r.log.Warn("applying theme", zap.String("profile", string(p.ID)), zap.Error(err))
		}
	}

	if caps.Features.ExtensionToggle {
		for _, ext := range p.Extensions {
			if err := r.host.SetExtensionEnabled(ctx, ext.ID, ext.Enabled); err != nil {
				r.log.Warn("toggling extension", zap.String("extension", ext.ID), zap.Error(err))
			}
		}
	}
}

func (r *Router) checkLicense(ctx context.Context) (Response, error) {
	caps, err := r.gate.Check(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{IsPro: boolPtr(caps.IsPro()), Status: &caps}, nil
}

func (r *Router) purchasePro(ctx context.Context) (Response, error) {
	res, err := r.gate.Purchase(ctx)
	if err != nil {
		return Response{}, err
	}

	if res.External {
		if r.purchaseURL != "" {
			if err := r.host.OpenURL(ctx, r.purchaseURL); err != nil {
				r.log.Warn("opening purchase page", zap.String("url", r.purchaseURL), zap.Error(err))
			}
		}
		return Response{External: true}, nil
	}

	r.publishLicense(ctx)
	return Response{}, nil
}

func (r *Router) activateLicense(ctx context.Context, req ActivateLicense) (Response, error) {
	caps, err := r.gate.Activate(ctx, req.Key)
	if err != nil {
		return Response{}, err
	}
	r.publish(ctx, Event{Type: EventLicenseChanged, Status: &caps})
	return Response{IsPro: boolPtr(caps.IsPro()), Status: &caps}, nil
}

func (r *Router) exportProfiles(ctx context.Context) (Response, error) {
	doc, err := r.store.Export(ctx)
	if err != nil {
		return Response{}, err
	}
	prefs, err := r.settings.Load(ctx)
	if err != nil {
		return Response{}, err
	}
	if doc.Settings, err = json.Marshal(prefs); err != nil {
		return Response{}, fmt.Errorf("encoding settings: %w", err)
	}
	return Response{Document: &doc}, nil
}

// importProfiles replaces the collection. It needs the export/import feature
// since it can bring in more profiles than the free tier allows.
func (r *Router) importProfiles(ctx context.Context, req ImportProfiles) (Response, error) {
	caps, err := r.gate.Status(ctx)
	if err != nil {
		return Response{}, err
	}
	if !caps.Features.ExportImport {
		return Response{}, fmt.Errorf("%w: import", ErrProRequired)
	}
	if len(req.Document) == 0 {
		return Response{}, fmt.Errorf("%w: document is required", profiles.ErrInvalidFormat)
	}

	doc, err := r.store.Import(ctx, req.Document)
	if err != nil {
		return Response{}, err
	}
	if len(doc.Settings) > 0 {
		if _, err := r.settings.Merge(ctx, doc.Settings); err != nil {
			r.log.Warn("ignoring imported settings", zap.Error(err))
		}
	}

	r.publish(ctx, Event{Type: EventProfilesChanged})
	return listResponse(doc.Profiles), nil
}

func (r *Router) resetProfiles(ctx context.Context) (Response, error) {
	list, err := r.store.ResetToDefaults(ctx)
	if err != nil {
		return Response{}, err
	}
	r.publish(ctx, Event{Type: EventProfilesChanged})
	return listResponse(list), nil
}

func (r *Router) notify(ctx context.Context, title, message string) {
	if err := r.host.Notify(ctx, title, message); err != nil {
		r.log.Warn("showing notification", zap.Error(err))
	}
}

func (r *Router) publishLicense(ctx context.Context) {
	caps, err := r.gate.Status(ctx)
	if err != nil {
		r.log.Warn("reading license for event", zap.Error(err))
		return
	}
	r.publish(ctx, Event{Type: EventLicenseChanged, Status: &caps})
}

func (r *Router) publish(ctx context.Context, ev Event) {
	ev.At = r.now()
	r.events.Publish(ctx, ev)
}
