package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfig    = "DOTMOD_CONFIG"
	EnvSourceDir = "DOTMOD_SOURCE_DIR"
	EnvPrefix    = "DOTMOD_PREFIX"
	EnvShell     = "DOTMOD_SHELL"
)

// Load assembles the configuration from defaults, the YAML file and the
// environment. configPath wins over $DOTMOD_CONFIG; if neither is set the
// default location is used when it exists. It returns the config and the
// file it was read from ("" when no file was used).
func Load(configPath string, getenv func(string) string) (*Config, string, error) {
	cfg := Defaults()
	home := getenv("HOME")

	path, explicit := configPath, configPath != ""
	if path == "" {
		path, explicit = getenv(EnvConfig), getenv(EnvConfig) != ""
	}
	if path == "" && home != "" {
		path = filepath.Join(home, ".config", "dotmod", "config.yaml")
	}

	if path != "" {
		path = ExpandHome(path, home)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, "", fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			path = ""
		default:
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	if v := getenv(EnvSourceDir); v != "" {
		cfg.SourceDir = v
	}
	if v := getenv(EnvPrefix); v != "" {
		cfg.Prefix = v
	}
	if v := getenv(EnvShell); v != "" {
		cfg.Shell = v
	}
	if getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	sourceDir, err := ResolveDir(cfg.SourceDir, home)
	if err != nil {
		return nil, "", err
	}
	cfg.SourceDir = sourceDir
	cfg.HistoryFile = ExpandHome(cfg.HistoryFile, home)

	return cfg, path, nil
}

// ExpandHome replaces a leading "~" or "~/" with home.
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveDir expands "~" and makes a non-empty directory path absolute.
func ResolveDir(path, home string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(ExpandHome(path, home))
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", path, err)
	}
	return abs, nil
}

// SplitList parses a comma-separated flag value, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
