// Package storage resolves the on-disk locations used by the driver and
// provides atomic file writes.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

var appName = "emudriver"

// Init sets the application data directory name.
func Init(dataDirName string) {
	if dataDirName != "" {
		appName = dataDirName
	}
}

// SlotsDBName is the file name of the SQLite slot database.
const SlotsDBName = "slots.db"

const configFile = "config.json"

// subdirs are created under the base directory by EnsureDirectories.
var subdirs = []string{"saves", "recordings", "screenshots"}

// GetBaseDir returns the per-user application data directory:
// ~/Library/Application Support/<app> on macOS, %APPDATA%\<app> on Windows
// and $XDG_DATA_HOME/<app> (default ~/.local/share/<app>) elsewhere.
func GetBaseDir() (string, error) {
	return baseDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func baseDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	if goos == "windows" {
		root := getenv("APPDATA")
		if root == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(root, appName), nil
	}
	if root := getenv("XDG_DATA_HOME"); root != "" && goos != "darwin" {
		return filepath.Join(root, appName), nil
	}

	h, err := home()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if goos == "darwin" {
		return filepath.Join(h, "Library", "Application Support", appName), nil
	}
	return filepath.Join(h, ".local", "share", appName), nil
}

// under joins elem onto the base directory.
func under(elem ...string) (string, error) {
	base, err := GetBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{base}, elem...)...), nil
}

// EnsureDirectories creates the base directory and its subdirectories.
func EnsureDirectories() error {
	for _, sub := range append([]string{""}, subdirs...) {
		dir, err := under(sub)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetConfigPath returns the default config file path.
func GetConfigPath() (string, error) { return under(configFile) }

// GetSavesDir returns the directory of per-game save slots.
func GetSavesDir() (string, error) { return under("saves") }

// GetSlotsDBPath returns the path of the SQLite slot database.
func GetSlotsDBPath() (string, error) { return under("saves", SlotsDBName) }

// GetRecordingsDir returns the directory audio recordings are written to.
func GetRecordingsDir() (string, error) { return under("recordings") }

// GetScreenshotDir returns the directory screenshots are written to.
func GetScreenshotDir() (string, error) { return under("screenshots") }

// AtomicWriteFile replaces path with data. The data goes to a temporary
// file in the same directory which is synced and renamed over path, so
// readers see either the old or the new content.
func AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AtomicWriteJSON writes v as indented JSON.
func AtomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return AtomicWriteFile(path, data)
}

// AtomicWriteYAML writes v as YAML.
func AtomicWriteYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return AtomicWriteFile(path, data)
}
