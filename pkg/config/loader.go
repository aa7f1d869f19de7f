package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = ".gitmeta.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".gitmeta"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "gitmeta"

// Load loads configuration from all layers starting at the current directory.
//
// CLI flags are applied separately after Load() returns.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration starting from a specific directory. Missing
// files are skipped; files that exist but do not parse are errors.
func LoadFrom(dir string) (*Config, error) {
	cfg := NewConfig()

	// Layer 2: Global user config
	if path := GetGlobalConfigPath(); path != "" {
		globalCfg, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config
	projectCfg, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	cfg.Merge(projectCfg)

	// Layer 4: Environment variables
	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProjectConfigFrom looks for project configuration starting from the
// given directory and walking up to the enclosing working tree root.
func loadProjectConfigFrom(dir string) (*Config, error) {
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(path)
			if err != nil || cfg != nil {
				return cfg, err
			}
		}

		if isWorkspaceRoot(current) {
			return nil, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, nil
		}
		current = parent
	}
}

// isWorkspaceRoot checks if the directory is a git working tree root. A
// .git file (worktrees, submodules) counts as well as a directory.
func isWorkspaceRoot(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// loadConfigFile loads a configuration from a TOML file. A missing file
// yields nil without error.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// applyEnvironmentVariables applies GITMETA_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) error {
	if v := os.Getenv("GITMETA_STORE_FILE"); v != "" {
		cfg.Store.File = v
	}

	// GITMETA_FIELDS: comma-separated list of fields
	if v := os.Getenv("GITMETA_FIELDS"); v != "" {
		cfg.Store.Fields = splitAndTrim(v)
	}

	applyBoolEnv("GITMETA_APPLY_FORCE", &cfg.Apply.Force)

	if v := os.Getenv("GITMETA_WATCH_DEBOUNCE"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GITMETA_WATCH_DEBOUNCE: %q is not a number of milliseconds", v)
		}
		cfg.Watch.Debounce = ms
	}

	if v := os.Getenv("GITMETA_VERBOSITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GITMETA_VERBOSITY: %q is not a number", v)
		}
		cfg.Log.Verbosity = &n
	}
	if v := os.Getenv("GITMETA_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
