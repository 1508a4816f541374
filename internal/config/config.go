// Package config loads client settings from defaults, an optional TOML
// file, an optional .env file and EVENTORA_* environment variables, in
// that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable read here.
const EnvPrefix = "EVENTORA_"

// Config holds the client settings.
type Config struct {
	APIURL      string   `toml:"api_url"`
	FrontendURL string   `toml:"frontend_url"`
	OAuth       OAuth    `toml:"oauth"`
	Timeout     Duration `toml:"timeout"`
	DataDir     string   `toml:"data_dir"`
	LogLevel    string   `toml:"log_level"`
	Locale      string   `toml:"locale"`
	// CallbackAddr is where the loopback OAuth listener binds.
	CallbackAddr string `toml:"callback_addr"`
	// DevAuthorize sends OAuth sign-in to the development backend's
	// stand-in consent endpoint.
	DevAuthorize bool `toml:"dev_authorize"`
}

// OAuth holds the provider client ids.
type OAuth struct {
	GoogleClientID   string `toml:"google_client_id"`
	GitHubClientID   string `toml:"github_client_id"`
	LinkedInClientID string `toml:"linkedin_client_id"`
}

// ClientID returns the configured id for provider, or "".
func (o OAuth) ClientID(provider string) string {
	switch strings.ToLower(provider) {
	case "google":
		return o.GoogleClientID
	case "github":
		return o.GitHubClientID
	case "linkedin":
		return o.LinkedInClientID
	}
	return ""
}

// Duration is a time.Duration written as "10s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:       "http://localhost:8080",
		FrontendURL:  "http://localhost:5173",
		Timeout:      Duration{10 * time.Second},
		DataDir:      defaultDataDir(),
		LogLevel:     "info",
		Locale:       "en",
		CallbackAddr: "127.0.0.1:8765",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eventora")
	}
	return ".eventora"
}

// DefaultPath is the TOML file read when no path is given.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "eventora", "config.toml")
	}
	return ""
}

// Options control where Load reads from.
type Options struct {
	// Path is the TOML file. An explicit path must exist; the default
	// path is skipped when missing.
	Path string
	// DotEnv is the .env file, ".env" when empty. Missing is fine.
	DotEnv string
	// LookupEnv reads the process environment; tests replace it.
	LookupEnv func(key string) (string, bool)
}

// Load builds the layered configuration and validates it.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := readTOML(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	fileEnv, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", dotenv, err)
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(name string) (string, bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := fileEnv[EnvPrefix+name]
		return v, ok
	}
	if err := applyEnv(&cfg, env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readTOML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	strs := map[string]*string{
		"API_URL":            &cfg.APIURL,
		"FRONTEND_URL":       &cfg.FrontendURL,
		"GOOGLE_CLIENT_ID":   &cfg.OAuth.GoogleClientID,
		"GITHUB_CLIENT_ID":   &cfg.OAuth.GitHubClientID,
		"LINKEDIN_CLIENT_ID": &cfg.OAuth.LinkedInClientID,
		"DATA_DIR":           &cfg.DataDir,
		"LOG_LEVEL":          &cfg.LogLevel,
		"LOCALE":             &cfg.Locale,
		"CALLBACK_ADDR":      &cfg.CallbackAddr,
	}
	for name, dst := range strs {
		if v, ok := env(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := env("TIMEOUT"); ok {
		if err := cfg.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: %sTIMEOUT %q: %w", EnvPrefix, v, err)
		}
	}
	if v, ok := env("DEV_AUTHORIZE"); ok {
		cfg.DevAuthorize = strings.EqualFold(strings.TrimSpace(v), "true") || strings.TrimSpace(v) == "1"
	}
	return nil
}

// Validate checks every setting Load cannot default.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"api_url": c.APIURL, "frontend_url": c.FrontendURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("config: %s %q: %w", name, raw, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: %s %q: scheme or host missing", name, raw)
		}
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout.Duration)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.CallbackAddr) == "" {
		return fmt.Errorf("config: callback_addr is required")
	}
	return nil
}

// ParseLevel maps debug|info|warn|error onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SessionPath is the SQLite file holding the persisted token.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// Write saves c as TOML at path, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
