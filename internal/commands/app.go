package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ruminaider/profilepop/internal/config"
	"github.com/ruminaider/profilepop/internal/discover"
	"github.com/ruminaider/profilepop/internal/host"
	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/logger"
	"github.com/ruminaider/profilepop/internal/paths"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/ruminaider/profilepop/internal/server"
	"github.com/ruminaider/profilepop/internal/settings"
	"github.com/ruminaider/profilepop/internal/storage"
	"go.uber.org/zap"
)

// KeyringService is the service name license keys are stored under in the OS
// keyring.
const KeyringService = "profilepop"

const storefrontRetries = 2

// App is a fully wired process: the selected storage backend, the profile
// and license cores, and the router every transport dispatches to.
type App struct {
	Config   config.Config
	Log      *zap.Logger
	KV       storage.Store
	Profiles *profiles.Store
	Gate     *license.Gate
	Settings *settings.Store
	Host     host.Adapter
	Hub      *server.Hub
	Router   *router.Router
	Scanner  *discover.Scanner
}

// Options controls how Open builds an App. Zero values read config.yaml and
// .env from the data dir and use the desktop host adapter.
type Options struct {
	ConfigPath string
	EnvPath    string
	// Config, when set, is used instead of reading ConfigPath.
	Config *config.Config

	Logger *zap.Logger

	Host       host.Adapter
	HostDir    string
	HostOutput io.Writer

	// Scanner, when set, replaces the browser profile scanner over the
	// platform's default data directories.
	Scanner *discover.Scanner
}

// Open loads configuration and wires every component.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		if log, err = logger.FromConfig(cfg.Log); err != nil {
			return nil, err
		}
	}

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	gateOpts := []license.Option{license.WithLogger(log)}
	if cfg.License.StorefrontURL != "" {
		sf := license.NewHTTPStorefront(cfg.License.StorefrontURL, cfg.License.RequestTimeout, storefrontRetries)
		gateOpts = append(gateOpts, license.WithStorefront(sf))
	}
	if cfg.License.UseKeyring {
		gateOpts = append(gateOpts, license.WithVault(license.NewKeyringVault(KeyringService)))
	}
	gate := license.NewGate(kv, cfg.License, gateOpts...)

	first, err := gate.EnsureInstalled(ctx)
	if err != nil {
		kv.Close()
		return nil, err
	}
	if first {
		log.Info("first run, trial started", zap.Int("trial_days", cfg.License.TrialDays))
	}

	adapter := opts.Host
	if adapter == nil {
		dir := opts.HostDir
		if dir == "" {
			dir = paths.HostDir()
		}
		var hostOpts []host.DesktopOption
		if opts.HostOutput != nil {
			hostOpts = append(hostOpts, host.WithOutput(opts.HostOutput))
		}
		adapter = host.NewDesktop(dir, hostOpts...)
	}

	store := profiles.NewStore(kv)
	prefs := settings.NewStore(kv)
	hub := server.NewHub(log)
	rt := router.New(store, gate, prefs, adapter,
		router.WithEvents(hub),
		router.WithLogger(log),
		router.WithPurchaseURL(cfg.License.PurchaseURL),
	)

	scanner := opts.Scanner
	if scanner == nil {
		scanner = discover.NewScanner()
	}

	return &App{
		Config:   cfg,
		Log:      log,
		KV:       kv,
		Profiles: store,
		Gate:     gate,
		Settings: prefs,
		Host:     adapter,
		Hub:      hub,
		Router:   rt,
		Scanner:  scanner,
	}, nil
}

func loadConfig(opts Options) (config.Config, error) {
	if opts.Config != nil {
		return *opts.Config, nil
	}
	path := opts.ConfigPath
	if path == "" {
		path = paths.ConfigFile()
	}
	envPath := opts.EnvPath
	if envPath == "" {
		envPath = paths.EnvFile()
	}
	return config.Load(path, envPath)
}

// Do handles req and turns a failure Response into an error.
func (a *App) Do(ctx context.Context, req router.Request) (router.Response, error) {
	resp := a.Router.Handle(ctx, req)
	if resp.Error != nil {
		return resp, resp.Error
	}
	return resp, nil
}

// Server returns the HTTP transport for this App.
func (a *App) Server() *server.Server {
	return server.New(a.Router, a.Hub, a.Log, server.WithAllowedOrigins(a.Config.Server.AllowedOrigins...))
}

// Close disconnects event clients and releases the storage backend.
func (a *App) Close() error {
	a.Hub.Close()
	_ = a.Log.Sync()
	return a.KV.Close()
}

// ClearAll wipes every persisted key and the stored license key. The next
// Open starts a fresh trial.
func (a *App) ClearAll(ctx context.Context) error {
	return errors.Join(
		a.Gate.Forget(ctx),
		a.KV.Clear(ctx),
	)
}
