package config

import (
	"fmt"
	"strings"

	"github.com/user-none/emudriver/input"
)

// RejectionError is returned for a configuration with invalid values. The
// configuration it describes must not be applied.
type RejectionError struct {
	Problems []string
}

func (e *RejectionError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// defaulted lists the keys that take a default when absent from a file,
// with the setter copying the default into place. Absent keys are
// defaulted; present keys keep their value even when it is zero.
var defaulted = []struct {
	key string
	set func(dst, def *Config)
}{
	{"version", func(c, d *Config) { c.Version = d.Version }},
	{"audio.hostSampleRate", func(c, d *Config) { c.Audio.HostSampleRate = d.Audio.HostSampleRate }},
	{"audio.bufferMs", func(c, d *Config) { c.Audio.BufferMs = d.Audio.BufferMs }},
	{"audio.lowWater", func(c, d *Config) { c.Audio.LowWater = d.Audio.LowWater }},
	{"audio.highWater", func(c, d *Config) { c.Audio.HighWater = d.Audio.HighWater }},
	{"audio.maxStretch", func(c, d *Config) { c.Audio.MaxStretch = d.Audio.MaxStretch }},
	{"audio.volume", func(c, d *Config) { c.Audio.Volume = d.Audio.Volume }},
	{"audio.fastForwardMute", func(c, d *Config) { c.Audio.FastForwardMute = d.Audio.FastForwardMute }},
	{"speed.multiplier", func(c, d *Config) { c.Speed.Multiplier = d.Speed.Multiplier }},
	{"speed.turboMultipliers", func(c, d *Config) { c.Speed.TurboMultipliers = d.Speed.TurboMultipliers }},
	{"rewind.frameStep", func(c, d *Config) { c.Rewind.FrameStep = d.Rewind.FrameStep }},
	{"rewind.capacity", func(c, d *Config) { c.Rewind.Capacity = d.Rewind.Capacity }},
	{"rewind.compress", func(c, d *Config) { c.Rewind.Compress = d.Rewind.Compress }},
	{"pacing.maxFrameSkip", func(c, d *Config) { c.Pacing.MaxFrameSkip = d.Pacing.MaxFrameSkip }},
	{"pacing.stepDeadlineMs", func(c, d *Config) { c.Pacing.StepDeadlineMs = d.Pacing.StepDeadlineMs }},
	{"pacing.sleepThresholdUs", func(c, d *Config) { c.Pacing.SleepThresholdUs = d.Pacing.SleepThresholdUs }},
	{"saves.backend", func(c, d *Config) { c.Saves.Backend = d.Saves.Backend }},
	{"saves.saveResumeOnExit", func(c, d *Config) { c.Saves.SaveResumeOnExit = d.Saves.SaveResumeOnExit }},
	{"window.scale", func(c, d *Config) { c.Window.Scale = d.Window.Scale }},
}

// detectPresentKeys walks a decoded document and returns the set of
// dotted-path keys (e.g. "audio.volume") that are explicitly present.
// Only keys that take defaults are reported.
func detectPresentKeys(raw map[string]any) map[string]bool {
	present := make(map[string]bool)
	for _, f := range defaulted {
		if hasPath(raw, f.key) {
			present[f.key] = true
		}
	}
	return present
}

func hasPath(raw map[string]any, key string) bool {
	parts := strings.Split(key, ".")
	cur := raw
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// ApplyMissingDefaults sets default values for config fields that are
// absent from the file, preserving intentional zero values (e.g. volume=0).
func ApplyMissingDefaults(cfg *Config, presentKeys map[string]bool) {
	defaults := DefaultConfig()
	for _, f := range defaulted {
		if !presentKeys[f.key] {
			f.set(cfg, defaults)
		}
	}
}

// Problems checks all config fields against valid ranges and returns
// human-readable descriptions. An empty slice means the config is valid.
func Problems(cfg *Config) []string {
	var errors []string

	// version
	if cfg.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", cfg.Version))
	}

	// audio
	a := cfg.Audio
	if a.HostSampleRate < 8000 || a.HostSampleRate > 192000 {
		errors = append(errors, fmt.Sprintf("audio.hostSampleRate: %d (valid: 8000-192000)", a.HostSampleRate))
	}
	if a.BufferMs < 10 || a.BufferMs > 500 {
		errors = append(errors, fmt.Sprintf("audio.bufferMs: %d (valid: 10-500)", a.BufferMs))
	}
	if err := a.Policy().Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("audio: %v", err))
	}
	if a.Volume < 0 || a.Volume > 2.0 {
		errors = append(errors, fmt.Sprintf("audio.volume: %.2f (valid: 0.0-2.0)", a.Volume))
	}

	// speed
	if !ValidSpeed(cfg.Speed.Multiplier) {
		errors = append(errors, fmt.Sprintf("speed.multiplier: %.2f (valid: 0.1-10.0)", cfg.Speed.Multiplier))
	}
	if len(cfg.Speed.TurboMultipliers) == 0 {
		errors = append(errors, "speed.turboMultipliers: empty")
	}
	for i, m := range cfg.Speed.TurboMultipliers {
		if !ValidSpeed(m) {
			errors = append(errors, fmt.Sprintf("speed.turboMultipliers[%d]: %.2f (valid: 0.1-10.0)", i, m))
		}
	}

	// rewind
	if cfg.Rewind.FrameStep < 1 || cfg.Rewind.FrameStep > 600 {
		errors = append(errors, fmt.Sprintf("rewind.frameStep: %d (valid: 1-600)", cfg.Rewind.FrameStep))
	}
	if cfg.Rewind.Capacity < 1 || cfg.Rewind.Capacity > 10000 {
		errors = append(errors, fmt.Sprintf("rewind.capacity: %d (valid: 1-10000)", cfg.Rewind.Capacity))
	}

	// pacing
	if cfg.Pacing.MaxFrameSkip < 0 || cfg.Pacing.MaxFrameSkip > 30 {
		errors = append(errors, fmt.Sprintf("pacing.maxFrameSkip: %d (valid: 0-30)", cfg.Pacing.MaxFrameSkip))
	}
	if cfg.Pacing.StepDeadlineMs < 100 || cfg.Pacing.StepDeadlineMs > 60000 {
		errors = append(errors, fmt.Sprintf("pacing.stepDeadlineMs: %d (valid: 100-60000)", cfg.Pacing.StepDeadlineMs))
	}
	if cfg.Pacing.SleepThresholdUs < 0 || cfg.Pacing.SleepThresholdUs > 100000 {
		errors = append(errors, fmt.Sprintf("pacing.sleepThresholdUs: %d (valid: 0-100000)", cfg.Pacing.SleepThresholdUs))
	}

	// saves
	if cfg.Saves.Backend != StoreFile && cfg.Saves.Backend != StoreSQLite {
		errors = append(errors, fmt.Sprintf("saves.backend: %q (valid: \"file\", \"sqlite\")", cfg.Saves.Backend))
	}

	// window
	if cfg.Window.Scale < 1 || cfg.Window.Scale > 8 {
		errors = append(errors, fmt.Sprintf("window.scale: %d (valid: 1-8)", cfg.Window.Scale))
	}

	// input
	errors = append(errors, input.ValidateOverrides(cfg.Input.Overrides())...)

	return errors
}

// ValidSpeed reports whether m is a usable speed multiplier.
func ValidSpeed(m float64) bool {
	return m >= 0.1 && m <= 10
}

// Validate returns a *RejectionError listing every invalid field, or nil.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &RejectionError{Problems: []string{"config: missing"}}
	}
	if p := Problems(cfg); len(p) > 0 {
		return &RejectionError{Problems: p}
	}
	return nil
}

// Correct resets any invalid fields to their defaults from DefaultConfig().
// Valid fields are preserved. Invalid input overrides are dropped.
func Correct(cfg *Config) *Config {
	defaults := DefaultConfig()

	if cfg.Version != 1 {
		cfg.Version = defaults.Version
	}
	if cfg.Audio.HostSampleRate < 8000 || cfg.Audio.HostSampleRate > 192000 {
		cfg.Audio.HostSampleRate = defaults.Audio.HostSampleRate
	}
	if cfg.Audio.BufferMs < 10 || cfg.Audio.BufferMs > 500 {
		cfg.Audio.BufferMs = defaults.Audio.BufferMs
	}
	if cfg.Audio.Policy().Validate() != nil {
		cfg.Audio.LowWater = defaults.Audio.LowWater
		cfg.Audio.HighWater = defaults.Audio.HighWater
		cfg.Audio.MaxStretch = defaults.Audio.MaxStretch
	}
	if cfg.Audio.Volume < 0 || cfg.Audio.Volume > 2.0 {
		cfg.Audio.Volume = defaults.Audio.Volume
	}
	if !ValidSpeed(cfg.Speed.Multiplier) {
		cfg.Speed.Multiplier = defaults.Speed.Multiplier
	}
	turboValid := len(cfg.Speed.TurboMultipliers) > 0
	for _, m := range cfg.Speed.TurboMultipliers {
		turboValid = turboValid && ValidSpeed(m)
	}
	if !turboValid {
		cfg.Speed.TurboMultipliers = defaults.Speed.TurboMultipliers
	}
	if cfg.Rewind.FrameStep < 1 || cfg.Rewind.FrameStep > 600 {
		cfg.Rewind.FrameStep = defaults.Rewind.FrameStep
	}
	if cfg.Rewind.Capacity < 1 || cfg.Rewind.Capacity > 10000 {
		cfg.Rewind.Capacity = defaults.Rewind.Capacity
	}
	if cfg.Pacing.MaxFrameSkip < 0 || cfg.Pacing.MaxFrameSkip > 30 {
		cfg.Pacing.MaxFrameSkip = defaults.Pacing.MaxFrameSkip
	}
	if cfg.Pacing.StepDeadlineMs < 100 || cfg.Pacing.StepDeadlineMs > 60000 {
		cfg.Pacing.StepDeadlineMs = defaults.Pacing.StepDeadlineMs
	}
	if cfg.Pacing.SleepThresholdUs < 0 || cfg.Pacing.SleepThresholdUs > 100000 {
		cfg.Pacing.SleepThresholdUs = defaults.Pacing.SleepThresholdUs
	}
	if cfg.Saves.Backend != StoreFile && cfg.Saves.Backend != StoreSQLite {
		cfg.Saves.Backend = defaults.Saves.Backend
	}
	if cfg.Window.Scale < 1 || cfg.Window.Scale > 8 {
		cfg.Window.Scale = defaults.Window.Scale
	}
	correctInput(&cfg.Input)

	return cfg
}

// correctInput removes overrides that would not bind.
func correctInput(in *InputConfig) {
	for name, key := range in.Keyboard {
		if len(input.ValidateOverrides(input.Overrides{Keyboard: map[string]string{name: key}})) > 0 {
			delete(in.Keyboard, name)
		}
	}
	for name, pad := range in.Gamepad {
		if len(input.ValidateOverrides(input.Overrides{Gamepad: map[string]string{name: pad}})) > 0 {
			delete(in.Gamepad, name)
		}
	}
	for chord, cmd := range in.Hotkeys {
		if len(input.ValidateOverrides(input.Overrides{Hotkeys: map[string]string{chord: cmd}})) > 0 {
			delete(in.Hotkeys, chord)
		}
	}
}
