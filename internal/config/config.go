// Package config loads client and development server settings. Values are
// layered: defaults, then the YAML config file, then HACKLOUD_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/me/hackloud/pkg/hackloud"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loaders.
const EnvPrefix = "HACKLOUD"

// Store backends for the session token.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// ClientConfig holds configuration for the hackloud CLI.
type ClientConfig struct {
	Server          string        // Backend base URL
	StaticURL       string        // Base URL of uploaded files (avatars)
	Timeout         time.Duration // Per-request HTTP timeout
	MaxRetries      int           // Retries for idempotent requests
	RetryDelay      time.Duration // Initial backoff between retries
	Store           string        // Token store backend: sqlite, file
	StatePath       string        // Token store location (default under ~/.hackloud)
	PreviewDir      string        // Where preview content is spilled (default os.TempDir)
	MaxPreviewBytes int64         // Text previews are truncated past this size
	LogLevel        string        // Log level: debug, info, warn, error
	LogFormat       string        // Log format: text, json
	Output          string        // Output format: text, json, yaml
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	api := hackloud.DefaultConfig()
	return ClientConfig{
		Server:          api.BaseURL,
		StaticURL:       api.StaticURL,
		Timeout:         api.Timeout,
		MaxRetries:      api.MaxRetries,
		RetryDelay:      api.RetryDelay,
		Store:           StoreSQLite,
		MaxPreviewBytes: api.MaxPreviewBytes,
		LogLevel:        "warn",
		LogFormat:       "text",
		Output:          "text",
	}
}

// API returns the API client configuration.
func (c ClientConfig) API() hackloud.Config {
	return hackloud.Config{
		BaseURL:         c.Server,
		StaticURL:       c.StaticURL,
		Timeout:         c.Timeout,
		MaxRetries:      c.MaxRetries,
		RetryDelay:      c.RetryDelay,
		MaxPreviewBytes: c.MaxPreviewBytes,
	}
}

// ResolveStatePath returns StatePath, or the default location for Store.
func (c ClientConfig) ResolveStatePath() (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if c.Store == StoreFile {
		return filepath.Join(dir, "credentials.json"), nil
	}
	return filepath.Join(dir, "state.db"), nil
}

// Validate checks values that would otherwise fail later and obscurely.
func (c ClientConfig) Validate() error {
	var errs []error
	if c.Server == "" {
		errs = append(errs, errors.New("server must not be empty"))
	}
	if c.Store != StoreSQLite && c.Store != StoreFile {
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreSQLite, StoreFile, c.Store))
	}
	switch c.Output {
	case "text", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output must be text, json or yaml, got %q", c.Output))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	return errors.Join(errs...)
}

// DevServerConfig holds configuration for the development backend.
type DevServerConfig struct {
	Addr      string        // Listen address (default ":3000")
	JWTSecret string        // HMAC key for issued tokens
	TokenTTL  time.Duration // Lifetime of issued tokens
	Seed      bool          // Create demo accounts at startup
	LogLevel  string        // Log level: debug, info, warn, error
	LogFormat string        // Log format: text, json
}

// DefaultDevServerConfig returns sensible defaults.
func DefaultDevServerConfig() DevServerConfig {
	return DevServerConfig{
		Addr:      ":3000",
		JWTSecret: "hackloud-dev-secret",
		TokenTTL:  24 * time.Hour,
		Seed:      true,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Dir returns the per-user configuration directory (~/.hackloud).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".hackloud"), nil
}

// clientFlags maps flag names to config keys.
var clientFlags = map[string]string{
	"server":     "server",
	"static-url": "static_url",
	"timeout":    "timeout",
	"retries":    "retries",
	"store":      "store",
	"state-path": "state_path",
	"log-level":  "log_level",
	"log-format": "log_format",
	"output":     "output",
}

// LoadClient resolves the client configuration. configPath may be empty to
// use ~/.hackloud/config.yaml when present. flags may be nil.
func LoadClient(configPath string, flags *pflag.FlagSet) (ClientConfig, error) {
	d := DefaultClientConfig()
	v := viper.New()
	v.SetDefault("server", d.Server)
	v.SetDefault("static_url", d.StaticURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retries", d.MaxRetries)
	v.SetDefault("retry_delay", d.RetryDelay)
	v.SetDefault("store", d.Store)
	v.SetDefault("state_path", d.StatePath)
	v.SetDefault("preview_dir", d.PreviewDir)
	v.SetDefault("max_preview_bytes", d.MaxPreviewBytes)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("output", d.Output)

	if err := read(v, configPath, "config", EnvPrefix); err != nil {
		return ClientConfig{}, err
	}
	if err := bindFlags(v, flags, clientFlags); err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		Server:          v.GetString("server"),
		StaticURL:       v.GetString("static_url"),
		Timeout:         v.GetDuration("timeout"),
		MaxRetries:      v.GetInt("retries"),
		RetryDelay:      v.GetDuration("retry_delay"),
		Store:           strings.ToLower(v.GetString("store")),
		StatePath:       v.GetString("state_path"),
		PreviewDir:      v.GetString("preview_dir"),
		MaxPreviewBytes: v.GetInt64("max_preview_bytes"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Output:          strings.ToLower(v.GetString("output")),
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var devServerFlags = map[string]string{
	"addr":       "addr",
	"jwt-secret": "jwt_secret",
	"token-ttl":  "token_ttl",
	"seed":       "seed",
	"log-level":  "log_level",
	"log-format": "log_format",
}

// LoadDevServer resolves the development server configuration. Environment
// variables use the HACKLOUD_DEV_ prefix.
func LoadDevServer(configPath string, flags *pflag.FlagSet) (DevServerConfig, error) {
	d := DefaultDevServerConfig()
	v := viper.New()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("jwt_secret", d.JWTSecret)
	v.SetDefault("token_ttl", d.TokenTTL)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if err := read(v, configPath, "devserver", EnvPrefix+"_DEV"); err != nil {
		return DevServerConfig{}, err
	}
	if err := bindFlags(v, flags, devServerFlags); err != nil {
		return DevServerConfig{}, err
	}

	return DevServerConfig{
		Addr:      v.GetString("addr"),
		JWTSecret: v.GetString("jwt_secret"),
		TokenTTL:  v.GetDuration("token_ttl"),
		Seed:      v.GetBool("seed"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}, nil
}

// read sets up environment lookup and reads the config file. A missing
// default file is not an error; a missing explicit file is.
func read(v *viper.Viper, configPath, name, envPrefix string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		return nil
	}

	dir, err := Dir()
	if err != nil {
		return nil
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names map[string]string) error {
	if flags == nil {
		return nil
	}
	for flag, key := range names {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}
