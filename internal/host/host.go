// Package host applies profile side effects to the environment the switcher
// runs in: notifications, the browser theme, extension states, and opening
// pages.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/spf13/afero"
)

// Adapter is the boundary between the router and the platform.
type Adapter interface {
	Notify(ctx context.Context, title, message string) error
	ApplyTheme(ctx context.Context, theme profiles.Theme) error
	ResetTheme(ctx context.Context) error
	SetExtensionEnabled(ctx context.Context, id string, enabled bool) error
	OpenURL(ctx context.Context, url string) error
}

const (
	themeFile      = "theme.json"
	extensionsFile = "extensions.json"
)

// Desktop is the Adapter for a local install. Notifications are printed,
// theme and extension state are kept as JSON files under dir, and URLs open
// in the system browser.
type Desktop struct {
	fs      afero.Fs
	dir     string
	out     io.Writer
	openURL func(string) error
	mu      sync.Mutex
}

// DesktopOption configures a Desktop.
type DesktopOption func(*Desktop)

// WithFs overrides the filesystem.
func WithFs(fs afero.Fs) DesktopOption {
	return func(d *Desktop) { d.fs = fs }
}

// WithOutput sets where notifications are printed.
func WithOutput(w io.Writer) DesktopOption {
	return func(d *Desktop) { d.out = w }
}

// WithURLOpener replaces the system browser.
func WithURLOpener(open func(string) error) DesktopOption {
	return func(d *Desktop) { d.openURL = open }
}

// NewDesktop returns a Desktop keeping its state under dir.
func NewDesktop(dir string, opts ...DesktopOption) *Desktop {
	d := &Desktop{
		fs:      afero.NewOsFs(),
		dir:     dir,
		out:     os.Stdout,
		openURL: browser.OpenURL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Desktop) Notify(_ context.Context, title, message string) error {
	pterm.Info.WithWriter(d.out).Println(title + ": " + message)
	return nil
}

func (d *Desktop) ApplyTheme(ctx context.Context, theme profiles.Theme) error {
	if theme.Reset {
		return d.ResetTheme(ctx)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeJSON(themeFile, theme)
}

func (d *Desktop) ResetTheme(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.fs.Remove(filepath.Join(d.dir, themeFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("resetting theme: %w", err)
	}
	return nil
}

func (d *Desktop) SetExtensionEnabled(_ context.Context, id string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	states, err := d.extensionStates()
	if err != nil {
		return err
	}
	states[id] = enabled
	return d.writeJSON(extensionsFile, states)
}

func (d *Desktop) OpenURL(_ context.Context, url string) error {
	if err := d.openURL(url); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	return nil
}

// CurrentTheme returns the applied theme, or nil after a reset.
func (d *Desktop) CurrentTheme() (*profiles.Theme, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := afero.ReadFile(d.fs, filepath.Join(d.dir, themeFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading theme: %w", err)
	}
	var theme profiles.Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("decoding theme: %w", err)
	}
	return &theme, nil
}

// ExtensionStates returns the enabled flag of every extension touched so far.
func (d *Desktop) ExtensionStates() (map[string]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.extensionStates()
}

func (d *Desktop) extensionStates() (map[string]bool, error) {
	states := map[string]bool{}
	data, err := afero.ReadFile(d.fs, filepath.Join(d.dir, extensionsFile))
	if errors.Is(err, os.ErrNotExist) {
		return states, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading extension states: %w", err)
	}
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decoding extension states: %w", err)
	}
	return states, nil
}

func (d *Desktop) writeJSON(name string, v any) error {
	if err := d.fs.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", d.dir, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := afero.WriteFile(d.fs, filepath.Join(d.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Noop discards every side effect.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error            { return nil }
func (Noop) ApplyTheme(context.Context, profiles.Theme) error        { return nil }
func (Noop) ResetTheme(context.Context) error                        { return nil }
func (Noop) SetExtensionEnabled(context.Context, string, bool) error { return nil }
func (Noop) OpenURL(context.Context, string) error                   { return nil }
