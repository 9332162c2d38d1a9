package config

import (
	"os"
	"path/filepath"
)

// AppName names the config and data directories.
const AppName = "reaction-timer"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), AppName, "config.toml")
}

// DefaultDBPath returns the default path for the SQLite session history.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), AppName, "sessions.db")
}

// DefaultCSVPath returns the default path for the results file.
func DefaultCSVPath() string {
	return filepath.Join(XDGDataHome(), AppName, "results.csv")
}
