package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
)

// ExportFileName is the default name for an export written on day t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("browser-profiles-%s.json", t.Format(time.DateOnly))
}

// Export writes the export document for the stored profiles and settings
// to w.
func (a *App) Export(ctx context.Context, w io.Writer) (profiles.Document, error) {
	resp, err := a.Do(ctx, router.ExportProfiles{})
	if err != nil {
		return profiles.Document{}, err
	}
	data, err := profiles.MarshalDocument(*resp.Document)
	if err != nil {
		return profiles.Document{}, err
	}
	if _, err := w.Write(data); err != nil {
		return profiles.Document{}, fmt.Errorf("writing export: %w", err)
	}
	return *resp.Document, nil
}

// Import replaces the stored profiles with the document read from r.
func (a *App) Import(ctx context.Context, r io.Reader) ([]profiles.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	resp, err := a.Do(ctx, router.ImportProfiles{Document: data})
	if err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}
