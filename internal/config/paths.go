package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDir returns the directory for the journal, logs and locks.
// $FOLDER_OBSERVER_HOME overrides the default ~/.folder-observer.
func DataDir() string {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".folder-observer")
	}
	return filepath.Join(home, ".folder-observer")
}

// DefaultJournalPath returns the journal database path.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal.db")
}

// LockDir returns the directory holding per-source lock files.
func LockDir() string {
	return filepath.Join(DataDir(), "locks")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/folder-observer/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/folder-observer/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "folder-observer", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "folder-observer", "config.yaml")
	}
	return filepath.Join(home, ".config", "folder-observer", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// IsWithin reports whether path is dir or lies below it.
// Both must be absolute and clean.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
