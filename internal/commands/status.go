package commands

import (
	"context"

	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/settings"
)

// StatusResult summarizes the stored profiles and the license.
type StatusResult struct {
	Backend      string
	Capabilities license.Capabilities
	Settings     settings.Settings
	// Stored is every profile; Visible is how many the current tier shows.
	Stored  []profiles.Profile
	Visible int
	// Current is the most recently switched-to profile, if any.
	Current *profiles.Profile
}

// Hidden returns how many stored profiles the current tier does not show.
func (r *StatusResult) Hidden() int {
	return len(r.Stored) - r.Visible
}

func (a *App) Status(ctx context.Context) (*StatusResult, error) {
	caps, err := a.Gate.Status(ctx)
	if err != nil {
		return nil, err
	}
	all, err := a.Profiles.All(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := a.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	visible := len(all)
	if !caps.Unlimited() && visible > caps.MaxProfiles {
		visible = caps.MaxProfiles
	}

	return &StatusResult{
		Backend:      a.Config.Storage.Backend,
		Capabilities: caps,
		Settings:     prefs,
		Stored:       all,
		Visible:      visible,
		Current:      mostRecent(all),
	}, nil
}

func mostRecent(list []profiles.Profile) *profiles.Profile {
	var cur *profiles.Profile
	for i := range list {
		p := &list[i]
		if p.LastUsed == nil {
			continue
		}
		if cur == nil || p.LastUsed.After(*cur.LastUsed) {
			cur = p
		}
	}
	return cur
}
