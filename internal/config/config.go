// Package config loads osuroundtrip configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the OSUROUNDTRIP_CONFIG environment variable. Without either, Default is
// used unchanged.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const EnvVar = "OSUROUNDTRIP_CONFIG"

type Config struct {
	// Fixtures is the directory, .osz or .osu verified when no path is given.
	Fixtures string `yaml:"fixtures"`

	// ResultsDB is the SQLite database runs are recorded in. Empty disables
	// recording.
	ResultsDB string `yaml:"results_db"`

	Decode DecodeConfig `yaml:"decode"`
	Verify VerifyConfig `yaml:"verify"`
	Log    LogConfig    `yaml:"log"`
}

type DecodeConfig struct {
	// FormatVersion overrides the file header when non-zero.
	FormatVersion int  `yaml:"format_version"`
	Offsets       bool `yaml:"offsets"`
	Lenient       bool `yaml:"lenient"`
}

type VerifyConfig struct {
	Workers int `yaml:"workers"`

	// SkipRulesets names rulesets (osu, taiko, fruits, mania) whose
	// beatmaps are not verified.
	SkipRulesets []string `yaml:"skip_rulesets"`

	// SkipSeen skips files whose content already passed.
	SkipSeen bool `yaml:"skip_seen"`

	// Convert also checks double conversion stability.
	Convert bool `yaml:"convert"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

func Default() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Config{
		Fixtures:  ".",
		ResultsDB: filepath.Join(cacheDir, "osuroundtrip", "results.db"),
		Verify: VerifyConfig{
			Workers: 4,
			Convert: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the file named by OSUROUNDTRIP_CONFIG, or returns Default when
// the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads path over Default. ${VAR} references in paths are
// expanded. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.Fixtures = os.ExpandEnv(cfg.Fixtures)
	cfg.ResultsDB = os.ExpandEnv(cfg.ResultsDB)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Verify.Workers < 1 {
		errs = append(errs, fmt.Errorf("verify.workers must be at least 1, got %d", c.Verify.Workers))
	}
	if c.Decode.FormatVersion < 0 {
		errs = append(errs, fmt.Errorf("decode.format_version must not be negative, got %d", c.Decode.FormatVersion))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
