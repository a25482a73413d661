// config.go - Daemon configuration loaded from TOML
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"depositprotocol/internal/events"
	"depositprotocol/internal/protocol"
)

// secretEnv overrides jwt_secret when set.
const secretEnv = "DEPOSITD_JWT_SECRET"

// Config is the resolved daemon configuration.
type Config struct {
	Listen    string
	LogLevel  string
	LogFormat string

	TokenName           string
	TokenSymbol         string
	Founder             protocol.Address
	InitialRatioPercent int64

	SnapshotPath    string
	AddressBookPath string

	RedisURL     string
	RedisChannel string

	JWTSecret string

	// Requests per client, refilled every RateWindow.
	RateLimit  int
	RateWindow time.Duration

	VerifierMode string
	KeyDir       string

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Listen              string `toml:"listen"`
	LogLevel            string `toml:"log_level"`
	LogFormat           string `toml:"log_format"`
	TokenName           string `toml:"token_name"`
	TokenSymbol         string `toml:"token_symbol"`
	Founder             string `toml:"founder"`
	InitialRatioPercent int64  `toml:"initial_ratio_percent"`
	SnapshotPath        string `toml:"snapshot_path"`
	AddressBookPath     string `toml:"address_book_path"`
	RedisURL            string `toml:"redis_url"`
	RedisChannel        string `toml:"redis_channel"`
	JWTSecret           string `toml:"jwt_secret"`
	RateLimit           int    `toml:"rate_limit"`
	RateWindow          string `toml:"rate_window"`
	VerifierMode        string `toml:"verifier_mode"`
	KeyDir              string `toml:"key_dir"`
	ShutdownTimeout     string `toml:"shutdown_timeout"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Listen:              ":8080",
		LogLevel:            "info",
		LogFormat:           "console",
		TokenName:           "Deposit USD",
		TokenSymbol:         "dUSD",
		Founder:             protocol.AddressFromLabel("founder"),
		InitialRatioPercent: 100,
		SnapshotPath:        "state.json",
		AddressBookPath:     "addresses.json",
		RedisChannel:        events.DefaultChannel,
		RateLimit:           100,
		RateWindow:          time.Second,
		VerifierMode:        "mock",
		KeyDir:              "keys",
		ShutdownTimeout:     10 * time.Second,
	}
}

// LoadConfig overlays the keys defined in path on DefaultConfig. An empty
// path uses the defaults alone. The JWT secret may come from the
// environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.overlay(raw, meta); err != nil {
			return Config{}, err
		}
	}

	if v := strings.TrimSpace(os.Getenv(secretEnv)); v != "" {
		cfg.JWTSecret = v
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlay(raw fileConfig, meta toml.MetaData) error {
	str := func(key, v string, dst *string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key, v string, dst *time.Duration) error {
		if !meta.IsDefined(key) {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("listen", raw.Listen, &c.Listen)
	str("log_level", raw.LogLevel, &c.LogLevel)
	str("log_format", raw.LogFormat, &c.LogFormat)
	str("token_name", raw.TokenName, &c.TokenName)
	str("token_symbol", raw.TokenSymbol, &c.TokenSymbol)
	str("snapshot_path", raw.SnapshotPath, &c.SnapshotPath)
	str("address_book_path", raw.AddressBookPath, &c.AddressBookPath)
	str("redis_url", raw.RedisURL, &c.RedisURL)
	str("redis_channel", raw.RedisChannel, &c.RedisChannel)
	str("jwt_secret", raw.JWTSecret, &c.JWTSecret)
	str("verifier_mode", raw.VerifierMode, &c.VerifierMode)
	str("key_dir", raw.KeyDir, &c.KeyDir)

	if meta.IsDefined("founder") {
		addr, err := protocol.ParseAddress(strings.TrimSpace(raw.Founder))
		if err != nil {
			return fmt.Errorf("parse founder: %w", err)
		}
		c.Founder = addr
	}
	if meta.IsDefined("initial_ratio_percent") {
		c.InitialRatioPercent = raw.InitialRatioPercent
	}
	if meta.IsDefined("rate_limit") {
		c.RateLimit = raw.RateLimit
	}
	if err := dur("rate_window", raw.RateWindow, &c.RateWindow); err != nil {
		return err
	}
	return dur("shutdown_timeout", raw.ShutdownTimeout, &c.ShutdownTimeout)
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen must be set")
	}
	if c.Founder.IsZero() {
		return fmt.Errorf("founder must be a non-zero address")
	}
	if c.InitialRatioPercent < 0 {
		return fmt.Errorf("initial_ratio_percent must not be negative")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set (or %s)", secretEnv)
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate_limit and rate_window must be positive")
	}
	switch c.VerifierMode {
	case "mock", "groth16":
	default:
		return fmt.Errorf("verifier_mode must be mock or groth16, got %q", c.VerifierMode)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

// SaveConfig writes c as TOML, creating parent directories.
func SaveConfig(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	raw := fileConfig{
		Listen:              c.Listen,
		LogLevel:            c.LogLevel,
		LogFormat:           c.LogFormat,
		TokenName:           c.TokenName,
		TokenSymbol:         c.TokenSymbol,
		Founder:             c.Founder.String(),
		InitialRatioPercent: c.InitialRatioPercent,
		SnapshotPath:        c.SnapshotPath,
		AddressBookPath:     c.AddressBookPath,
		RedisURL:            c.RedisURL,
		RedisChannel:        c.RedisChannel,
		JWTSecret:           c.JWTSecret,
		RateLimit:           c.RateLimit,
		RateWindow:          c.RateWindow.String(),
		VerifierMode:        c.VerifierMode,
		KeyDir:              c.KeyDir,
		ShutdownTimeout:     c.ShutdownTimeout.String(),
	}
	if err := toml.NewEncoder(f).Encode(raw); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
