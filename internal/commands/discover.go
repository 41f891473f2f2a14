package commands

import (
	"context"
	"strings"

	"github.com/ruminaider/profilepop/internal/discover"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
	"go.uber.org/zap"
)

// DiscoverResult reports what a browser scan found and what it added.
type DiscoverResult struct {
	Browser discover.Browser
	Root    string
	Found   []discover.Found
	// Added holds the saved profiles, or the candidates on a dry run.
	Added []profiles.Profile
	// Skipped names profiles that already exist under the same name.
	Skipped []string
}

// Discover scans browser b for its profiles and saves one ProfilePop profile
// for each that is not already stored. Saves go through the router, so the
// tier's profile limit applies; on failure the partial result is returned
// alongside the error.
func (a *App) Discover(ctx context.Context, b discover.Browser, dryRun bool) (*DiscoverResult, error) {
	res := &DiscoverResult{Browser: b, Root: a.Scanner.Root(b)}

	found, err := a.Scanner.Scan(b)
	if err != nil {
		return res, err
	}
	res.Found = found

	existing, err := a.Profiles.All(ctx)
	if err != nil {
		return res, err
	}
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[strings.ToLower(p.Name)] = true
	}

	for _, f := range found {
		p := f.Profile()
		key := strings.ToLower(p.Name)
		if taken[key] {
			res.Skipped = append(res.Skipped, p.Name)
			continue
		}
		taken[key] = true

		if dryRun {
			res.Added = append(res.Added, p)
			continue
		}
		resp, err := a.Do(ctx, router.SaveProfile{Profile: p})
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, *resp.Profile)
	}

	a.Log.Info("browser profiles discovered",
		zap.String("browser", string(b)),
		zap.Int("found", len(found)),
		zap.Int("added", len(res.Added)),
		zap.Bool("dry_run", dryRun),
	)
	return res, nil
}
