// Package config provides configuration management for gitmeta.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/gitmeta/config.toml)
//  3. Project config (.gitmeta/config.toml or .gitmeta.toml)
//  4. Environment variables (GITMETA_*)
//  5. CLI flags (highest priority)
package config

// DefaultStoreFile is the store file name used when none is configured.
const DefaultStoreFile = ".git_store_meta"

// DefaultDebounce is the default watch debounce in milliseconds.
const DefaultDebounce = 500

// Config is the main configuration struct for gitmeta.
type Config struct {
	// Store configures the store file and the fields it records.
	Store StoreConfig `toml:"store"`

	// Apply configures the apply action.
	Apply ApplyConfig `toml:"apply"`

	// Watch configures watch mode.
	Watch WatchConfig `toml:"watch"`

	// Log configures logging.
	Log LogConfig `toml:"log"`
}

// StoreConfig holds store file settings.
type StoreConfig struct {
	// File is the store path, relative to the working tree root unless absolute.
	File string `toml:"file" validate:"required"`

	// Fields recorded by store and restored by apply. Empty means inherit the
	// fields of the existing store.
	Fields []string `toml:"fields" validate:"dive,oneof=file type mtime atime mode uid gid user group acl directory"`
}

// ApplyConfig holds apply settings.
type ApplyConfig struct {
	// Force applies even when the working tree has uncommitted changes.
	Force *bool `toml:"force"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// Debounce is the quiet period in milliseconds before an update runs.
	Debounce int `toml:"debounce" validate:"gte=0,lte=60000"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Verbosity is the -v level (0=error .. 4=trace).
	Verbosity *int `toml:"verbosity" validate:"omitempty,gte=0,lte=4"`

	// Format is "text" or "json".
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	force := false
	return &Config{
		Store: StoreConfig{
			File: DefaultStoreFile,
		},
		Apply: ApplyConfig{
			Force: &force,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
	}
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Store.File != "" {
		c.Store.File = other.Store.File
	}
	if len(other.Store.Fields) > 0 {
		c.Store.Fields = other.Store.Fields
	}

	if other.Apply.Force != nil {
		c.Apply.Force = other.Apply.Force
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	if other.Log.Verbosity != nil {
		c.Log.Verbosity = other.Log.Verbosity
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// ForceApply reports whether apply should skip the dirty-tree check.
func (c *Config) ForceApply() bool {
	return c.Apply.Force != nil && *c.Apply.Force
}
