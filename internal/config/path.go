// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the config directory and env prefix.
const AppName = "tollrisk"

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// DefaultConfigDir is $HOME/.config/tollrisk.
func DefaultConfigDir() string {
	return ExpandPath(filepath.Join("~", ".config", AppName))
}

// DefaultDatabasePath is where sessions are stored when nothing is configured.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "sessions.db")
}

// DefaultTokenPath is where the Sheets login flow saves its token.
func DefaultTokenPath() string {
	return filepath.Join(DefaultConfigDir(), "sheets-token.json")
}

// DefaultCertDir holds the self-signed certificate for serve --tls.
func DefaultCertDir() string {
	return filepath.Join(DefaultConfigDir(), "certs")
}
