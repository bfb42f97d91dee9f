// Package config loads regtest.toml, the optional per-project configuration
// for the harness. Command-line flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/hvtools/regtest/internal/logging"
)

// ConfigFileName is the name of the regtest configuration file.
const ConfigFileName = "regtest.toml"

// FindConfigFile walks up from the given directory to find regtest.toml.
// Returns the absolute path to the config file, or an empty string if not
// found. Stops at the filesystem root.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root.
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML file at the given path and returns the
// configuration and TOML metadata. The metadata can be used to detect
// unknown keys via MetaData.Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, md, nil
}

// Load resolves and parses the configuration. An explicit path wins;
// otherwise the file is searched for by walking up from the working
// directory, and its absence falls back to Default. Unknown keys are
// logged as warnings, not errors.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		found, err := FindConfigFile(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return Default(), nil
		}
		path = found
	}

	cfg, md, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logger := logging.New("config")
		for _, key := range undecoded {
			logger.Warn("unknown config key", "file", path, "key", key.String())
		}
	}
	return cfg, nil
}
