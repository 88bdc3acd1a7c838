// Package config holds the driver configuration snapshot and its file
// representation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user-none/emudriver/audio"
	"github.com/user-none/emudriver/input"
	"github.com/user-none/emudriver/state"
	"github.com/user-none/emudriver/storage"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Audio: AudioConfig{
			HostSampleRate:  48000,
			BufferMs:        80,
			LowWater:        audio.DefaultPolicy.LowWater,
			HighWater:       audio.DefaultPolicy.HighWater,
			MaxStretch:      audio.DefaultPolicy.MaxStretch,
			Volume:          1.0,
			FastForwardMute: true,
		},
		Speed: SpeedConfig{
			Multiplier:       1.0,
			TurboMultipliers: []float64{1, 2, 3},
		},
		Rewind: RewindConfig{
			Enabled:   false,
			FrameStep: 2,
			Capacity:  600,
			Compress:  true,
		},
		Pacing: PacingConfig{
			MaxFrameSkip:     4,
			StepDeadlineMs:   2000,
			SleepThresholdUs: 1500,
		},
		Saves: SavesConfig{
			Backend:          StoreFile,
			SaveResumeOnExit: true,
		},
		Window: WindowConfig{
			Scale: 3,
		},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	n := *c
	n.Speed.TurboMultipliers = append([]float64(nil), c.Speed.TurboMultipliers...)
	n.Input.Keyboard = cloneMap(c.Input.Keyboard)
	n.Input.Gamepad = cloneMap(c.Input.Gamepad)
	n.Input.Hotkeys = cloneMap(c.Input.Hotkeys)
	if c.Backends != nil {
		n.Backends = make(map[string]map[string]string, len(c.Backends))
		for k, v := range c.Backends {
			n.Backends[k] = cloneMap(v)
		}
	}
	return &n
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Policy returns the audio buffer thresholds.
func (a AudioConfig) Policy() audio.Policy {
	return audio.Policy{LowWater: a.LowWater, HighWater: a.HighWater, MaxStretch: a.MaxStretch}
}

// Options returns the rewind manager settings.
func (r RewindConfig) Options() state.Options {
	return state.Options{Enabled: r.Enabled, Capacity: r.Capacity, FrameStep: r.FrameStep, Compress: r.Compress}
}

// StepDeadline returns the stall watchdog deadline.
func (p PacingConfig) StepDeadline() time.Duration {
	return time.Duration(p.StepDeadlineMs) * time.Millisecond
}

// SleepThreshold returns the smallest lead the pacer sleeps for.
func (p PacingConfig) SleepThreshold() time.Duration {
	return time.Duration(p.SleepThresholdUs) * time.Microsecond
}

// Overrides returns the binding overrides.
func (i InputConfig) Overrides() input.Overrides {
	return input.Overrides{Keyboard: i.Keyboard, Gamepad: i.Gamepad, Hotkeys: i.Hotkeys}
}

// BackendOptions returns the configured options of one backend merged over
// defaults. The result is a new map.
func (c *Config) BackendOptions(name string, defaults map[string]string) map[string]string {
	opts := cloneMap(defaults)
	if opts == nil {
		opts = make(map[string]string)
	}
	for k, v := range c.Backends[name] {
		opts[k] = v
	}
	return opts
}

// isYAML reports whether a path should be read and written as YAML.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a configuration file, JSON or YAML by extension.
// If the file doesn't exist, it returns default configuration.
// If the file is corrupted, it returns an error.
// Missing fields (absent from the file) are silently defaulted.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, isYAML(path))
}

// Parse decodes configuration bytes and applies defaults for absent keys.
func Parse(data []byte, asYAML bool) (*Config, error) {
	cfg := &Config{}
	var raw map[string]any
	if asYAML {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		_ = yaml.Unmarshal(data, &raw)
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		_ = json.Unmarshal(data, &raw)
	}

	ApplyMissingDefaults(cfg, detectPresentKeys(raw))
	return cfg, nil
}

// LoadDefault loads the config file in the application directory.
func LoadDefault() (*Config, error) {
	path, err := storage.GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the configuration atomically, JSON or YAML by extension.
func Save(path string, cfg *Config) error {
	if isYAML(path) {
		return storage.AtomicWriteYAML(path, cfg)
	}
	return storage.AtomicWriteJSON(path, cfg)
}

// CreateIfMissing writes the default configuration if path doesn't exist.
func CreateIfMissing(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Save(path, DefaultConfig())
	}
	return nil
}
