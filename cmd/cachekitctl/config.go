package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds the settings a cache is opened with.
type Config struct {
	ValueCount int    `json:"value_count,omitempty"` //nolint:tagliatelle // snake_case config file
	MaxSize    int64  `json:"max_size,omitempty"`
	AppVersion int    `json:"app_version,omitempty"`
	Editor     string `json:"editor,omitempty"`
}

// ConfigFileName is the project-local config file, checked in the
// directory cachekitctl is invoked from.
const ConfigFileName = ".cachekitctl.json"

var errConfigInvalid = errors.New("invalid config file")

// DefaultConfig returns the settings used when nothing else overrides them.
func DefaultConfig() Config {
	return Config{
		ValueCount: 1,
		MaxSize:    64 << 20,
		AppVersion: 1,
	}
}

// LoadConfig merges configuration with the following precedence, highest
// wins: defaults, then the global user config
// ($XDG_CONFIG_HOME/cachekitctl/config.json or ~/.config/cachekitctl/config.json),
// then a project-local .cachekitctl.json, then CLI flag overrides.
func LoadConfig(workDir string, overrides Config, overridden map[string]bool, env []string) (Config, error) {
	cfg := DefaultConfig()

	globalCfg, err := loadConfigFile(globalConfigPath(env))
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, err := loadConfigFile(filepath.Join(workDir, ConfigFileName))
	if err != nil {
		return Config{}, err
	}

	cfg = mergeConfig(cfg, projectCfg)

	if overridden["value-count"] {
		cfg.ValueCount = overrides.ValueCount
	}

	if overridden["max-size"] {
		cfg.MaxSize = overrides.MaxSize
	}

	if overridden["app-version"] {
		cfg.AppVersion = overrides.AppVersion
	}

	if cfg.ValueCount <= 0 {
		return Config{}, fmt.Errorf("%w: value_count must be > 0", errConfigInvalid)
	}

	if cfg.MaxSize <= 0 {
		return Config{}, fmt.Errorf("%w: max_size must be > 0", errConfigInvalid)
	}

	return cfg, nil
}

// globalConfigPath returns $XDG_CONFIG_HOME/cachekitctl/config.json if set,
// otherwise ~/.config/cachekitctl/config.json. Returns empty if neither can
// be determined.
func globalConfigPath(env []string) string {
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "XDG_CONFIG_HOME="); ok && after != "" {
			return filepath.Join(after, "cachekitctl", "config.json")
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cachekitctl", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "cachekitctl", "config.json")
}

// loadConfigFile reads and hujson-decodes path. A missing file is not an
// error; it simply contributes nothing to the merge.
func loadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.ValueCount != 0 {
		base.ValueCount = overlay.ValueCount
	}

	if overlay.MaxSize != 0 {
		base.MaxSize = overlay.MaxSize
	}

	if overlay.AppVersion != 0 {
		base.AppVersion = overlay.AppVersion
	}

	if overlay.Editor != "" {
		base.Editor = overlay.Editor
	}

	return base
}
