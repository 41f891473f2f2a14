package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config represents ~/.profilepop/config.yaml.
type Config struct {
	Storage Storage `yaml:"storage"`
	License License `yaml:"license"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

// Storage selects and configures the persisted state backend.
type Storage struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path,omitempty"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// License holds licensing limits and storefront endpoints.
type License struct {
	FreeProfileLimit int           `yaml:"free_profile_limit"`
	TrialDays        int           `yaml:"trial_days"`
	SKU              string        `yaml:"sku"`
	PurchaseURL      string        `yaml:"purchase_url"`
	StorefrontURL    string        `yaml:"storefront_url,omitempty"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	UseKeyring       bool          `yaml:"use_keyring"`
}

// Server configures the HTTP transport.
type Server struct {
	Listen string `yaml:"listen"`
	// AllowedOrigins are exact origins admitted besides extension pages.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Log configures the structured logger.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// TrialPeriod returns the trial window as a duration.
func (l License) TrialPeriod() time.Duration {
	return time.Duration(l.TrialDays) * 24 * time.Hour
}

// Default returns the configuration used when no config.yaml exists.
func Default() Config {
	return Config{
		Storage: Storage{Backend: BackendFile, RedisPrefix: "profilepop"},
		License: License{
			FreeProfileLimit: 5,
			TrialDays:        7,
			SKU:              "browser_profile_icons_pro",
			PurchaseURL:      "https://gumroad.com/l/browser-profile-icons-pro",
			RequestTimeout:   10 * time.Second,
		},
		Server: Server{Listen: "127.0.0.1:7465"},
		Log:    Log{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// Parse parses config.yaml bytes on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Marshal serializes a Config to YAML bytes.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Load reads the config file at path, falling back to defaults when it does
// not exist, then applies PROFILEPOP_* environment overrides. A .env file at
// envPath is loaded first when present.
func Load(path, envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, err
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PROFILEPOP_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("PROFILEPOP_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("PROFILEPOP_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("PROFILEPOP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PROFILEPOP_STOREFRONT_URL"); v != "" {
		cfg.License.StorefrontURL = v
	}
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage backend %q requires redis_addr", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.License.FreeProfileLimit < 1 {
		return fmt.Errorf("license.free_profile_limit must be at least 1")
	}
	if c.License.TrialDays < 0 {
		return fmt.Errorf("license.trial_days must not be negative")
	}
	return nil
}
