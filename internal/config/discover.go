package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the variable that overrides config discovery.
const EnvConfigPath = "BELLHOP_CONFIG"

// DefaultPath is where `bellhop config init` writes when given no path:
// $XDG_CONFIG_HOME/bellhop/config.toml, falling back to ~/.config.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "bellhop", "config.toml")
}

// SearchPaths lists the locations Discover tries, in order, when
// BELLHOP_CONFIG is unset.
func SearchPaths() []string {
	return []string{
		"./config.toml",
		DefaultPath(),
		"/etc/bellhop/config.toml",
	}
}

// NotFoundError is returned by Discover when no candidate file exists.
type NotFoundError struct {
	Checked []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no bellhop config found (checked %s); run `bellhop config init` or set %s",
		strings.Join(e.Checked, ", "), EnvConfigPath)
}

// Discover returns the config file bellhopd and bellhop should use.
// BELLHOP_CONFIG wins and must exist. Otherwise the first existing entry of
// SearchPaths is returned. Directories are skipped.
func Discover() (string, error) {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if err := isConfigFile(envPath); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfigPath, envPath, err)
		}
		return envPath, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if isConfigFile(p) == nil {
			return p, nil
		}
	}
	return "", &NotFoundError{Checked: paths}
}

func isConfigFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: is a directory", fs.ErrInvalid)
	}
	return nil
}

