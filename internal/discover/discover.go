// Package discover finds the profiles a browser already has on disk, so they
// can be imported as ProfilePop profiles. Chromium browsers list theirs in the
// "Local State" file; Firefox keeps profiles.ini.
package discover

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// Browser names a supported browser.
type Browser string

const (
	Chrome  Browser = "chrome"
	Edge    Browser = "edge"
	Firefox Browser = "firefox"
)

// ErrNotInstalled is returned when a browser's profile data is missing.
var ErrNotInstalled = errors.New("browser profile data not found")

// Browsers returns every supported browser.
func Browsers() []Browser {
	return []Browser{Chrome, Edge, Firefox}
}

// ParseBrowser accepts a browser name in any case.
func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case Chrome, Edge, Firefox:
		return b, nil
	}
	return "", fmt.Errorf("unknown browser %q (want chrome, edge or firefox)", s)
}

// First color of each set is the browser's brand color.
var colors = map[Browser][]string{
	Chrome:  {"#4285f4", "#57f287", "#feb47b", "#ff7eb9", "#c44569", "#f8b500"},
	Edge:    {"#5865f2", "#57f287", "#feb47b", "#ff7eb9", "#c44569", "#f8b500"},
	Firefox: {"#ff9500", "#57f287", "#feb47b", "#ff7eb9", "#c44569", "#f8b500"},
}

// Found is one browser profile read from disk.
type Found struct {
	Browser Browser
	// Dir is the profile's directory: the info_cache key for Chromium
	// browsers, the Path entry for Firefox.
	Dir  string
	Name string
	// Index is the profile's position in the browser's own listing.
	Index int
}

// Profile converts f into a new ProfilePop profile named after the browser
// profile and colored by its position.
func (f Found) Profile() profiles.Profile {
	palette := colors[f.Browser]
	return profiles.Profile{
		Name:  f.Name + " - " + strings.ToUpper(string(f.Browser)),
		Color: palette[f.Index%len(palette)],
	}
}

// Scanner reads browser profile listings.
type Scanner struct {
	fs    afero.Fs
	roots map[Browser]string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithFs reads from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) { s.fs = fs }
}

// WithRoot overrides the user data directory for one browser.
func WithRoot(b Browser, dir string) Option {
	return func(s *Scanner) { s.roots[b] = dir }
}

// NewScanner returns a Scanner over the platform's default data directories.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{fs: afero.NewOsFs(), roots: map[Browser]string{}}
	for _, b := range Browsers() {
		s.roots[b] = DefaultRoot(b)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the data directory scanned for b.
func (s *Scanner) Root(b Browser) string {
	return s.roots[b]
}

// Scan lists b's profiles in the order the browser records them.
func (s *Scanner) Scan(b Browser) ([]Found, error) {
	switch b {
	case Chrome, Edge:
		return s.scanChromium(b)
	case Firefox:
		return s.scanFirefox()
	}
	return nil, fmt.Errorf("unknown browser %q", b)
}

func (s *Scanner) read(b Browser, name string) ([]byte, error) {
	path := filepath.Join(s.roots[b], name)
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNotInstalled, b, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (s *Scanner) scanChromium(b Browser) ([]Found, error) {
	data, err := s.read(b, "Local State")
	if err != nil {
		return nil, err
	}

	var state struct {
		Profile struct {
			InfoCache json.RawMessage `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing %s Local State: %w", b, err)
	}
	if len(state.Profile.InfoCache) == 0 {
		return []Found{}, nil
	}

	// info_cache is an object keyed by profile directory. Walk it with a
	// decoder so the browser's own ordering survives.
	dec := json.NewDecoder(bytes.NewReader(state.Profile.InfoCache))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("parsing %s info_cache: expected an object", b)
	}

	out := []Found{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing %s info_cache: %w", b, err)
		}
		dir, _ := tok.(string)

		var entry struct {
			Name string `json:"name"`
		}
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("parsing %s profile %q: %w", b, dir, err)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = dir
		}
		out = append(out, Found{Browser: b, Dir: dir, Name: name, Index: len(out)})
	}
	return out, nil
}

func (s *Scanner) scanFirefox() ([]Found, error) {
	data, err := s.read(Firefox, "profiles.ini")
	if err != nil {
		return nil, err
	}

	cfg, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing firefox profiles.ini: %w", err)
	}

	out := []Found{}
	for _, sec := range cfg.Sections() {
		if !strings.HasPrefix(sec.Name(), "Profile") {
			continue
		}
		name := strings.TrimSpace(sec.Key("Name").String())
		if name == "" {
			name = fmt.Sprintf("Profile %d", len(out))
		}
		out = append(out, Found{
			Browser: Firefox,
			Dir:     sec.Key("Path").String(),
			Name:    name,
			Index:   len(out),
		})
	}
	return out, nil
}

// DefaultRoot returns where b keeps its user data on this platform.
func DefaultRoot(b Browser) string {
	home, _ := os.UserHomeDir()
	return rootFor(runtime.GOOS, home, os.Getenv, b)
}

func rootFor(goos, home string, getenv func(string) string, b Browser) string {
	switch goos {
	case "windows":
		local := getenv("LOCALAPPDATA")
		if local == "" {
			local = filepath.Join(home, "AppData", "Local")
		}
		roaming := getenv("APPDATA")
		if roaming == "" {
			roaming = filepath.Join(home, "AppData", "Roaming")
		}
		switch b {
		case Chrome:
			return filepath.Join(local, "Google", "Chrome", "User Data")
		case Edge:
			return filepath.Join(local, "Microsoft", "Edge", "User Data")
		case Firefox:
			return filepath.Join(roaming, "Mozilla", "Firefox")
		}

	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch b {
		case Chrome:
			return filepath.Join(support, "Google", "Chrome")
		case Edge:
			return filepath.Join(support, "Microsoft Edge")
		case Firefox:
			return filepath.Join(support, "Firefox")
		}

	default:
		switch b {
		case Chrome:
			return filepath.Join(home, ".config", "google-chrome")
		case Edge:
			return filepath.Join(home, ".config", "microsoft-edge")
		case Firefox:
			return filepath.Join(home, ".mozilla", "firefox")
		}
	}
	return ""
}
