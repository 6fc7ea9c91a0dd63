// Package config loads relsync settings from defaults, a relsync.yaml file,
// RELSYNC_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultFile      = "relsync.yaml"
	DefaultDatabase  = "relsync.db"
	DefaultSchemaDir = "schema"
	DefaultFormat    = "text"

	// EnvPrefix prefixes every environment override: RELSYNC_SCHEMA_DIR
	// sets schema_dir.
	EnvPrefix = "RELSYNC_"

	// MemoryDatabase selects a private in-memory database.
	MemoryDatabase = ":memory:"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config holds every setting of the relsync CLI.
type Config struct {
	Database  string `koanf:"database"`
	SchemaDir string `koanf:"schema_dir"`
	Format    string `koanf:"format"`
	Verbose   bool   `koanf:"verbose"`
	Scope     string `koanf:"scope"`

	// File is the config file that was loaded, empty when none was found.
	File string `koanf:"-"`
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// cfgFile names the config file explicitly; when empty, relsync.yaml in the
// working directory is used if it exists. Only flags that were changed on
// the command line override other sources. Relative paths read from the
// config file are resolved against the file's directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"database":   DefaultDatabase,
		"schema_dir": DefaultSchemaDir,
		"format":     DefaultFormat,
		"verbose":    false,
		"scope":      "",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			cfgFile = DefaultFile
		}
	}
	if cfgFile != "" {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		base := filepath.Dir(cfgFile)
		for _, key := range []string{"database", "schema_dir"} {
			if !fk.Exists(key) {
				continue
			}
			if err := fk.Set(key, resolvePath(fk.String(key), base)); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
			}
		}
		if err := k.Merge(fk); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// Transform: RELSYNC_SCHEMA_DIR -> schema_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the decoded settings.
func (c *Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, Formats)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.SchemaDir == "" {
		return fmt.Errorf("schema_dir is required")
	}
	return nil
}

// resolvePath resolves path relative to baseDir if it's not absolute.
// The in-memory database name is left unchanged.
func resolvePath(path, baseDir string) string {
	if path == "" || path == MemoryDatabase || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
