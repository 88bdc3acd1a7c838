package config

// Config is one driver configuration snapshot. A snapshot handed to the
// driver is never modified; changes are applied by handing over a new one.
type Config struct {
	Version  int                          `json:"version" yaml:"version"`
	Audio    AudioConfig                  `json:"audio" yaml:"audio"`
	Speed    SpeedConfig                  `json:"speed" yaml:"speed"`
	Rewind   RewindConfig                 `json:"rewind" yaml:"rewind"`
	Pacing   PacingConfig                 `json:"pacing" yaml:"pacing"`
	Saves    SavesConfig                  `json:"saves" yaml:"saves"`
	Input    InputConfig                  `json:"input" yaml:"input"`
	Window   WindowConfig                 `json:"window" yaml:"window"`
	Backends map[string]map[string]string `json:"backends,omitempty" yaml:"backends,omitempty"` // backend name -> option key -> value
}

// AudioConfig contains audio output and buffer management settings.
type AudioConfig struct {
	HostSampleRate  int     `json:"hostSampleRate" yaml:"hostSampleRate"`
	BufferMs        int     `json:"bufferMs" yaml:"bufferMs"`     // ring depth, default 80
	LowWater        float64 `json:"lowWater" yaml:"lowWater"`     // fraction of depth
	HighWater       float64 `json:"highWater" yaml:"highWater"`   // fraction of depth
	MaxStretch      float64 `json:"maxStretch" yaml:"maxStretch"` // 0.005 = ±0.5%
	Volume          float64 `json:"volume" yaml:"volume"`
	Muted           bool    `json:"muted" yaml:"muted"`
	FastForwardMute bool    `json:"fastForwardMute" yaml:"fastForwardMute"` // Mute audio during fast-forward (default: true)
	Record          string  `json:"record,omitempty" yaml:"record,omitempty"` // WAV path of the output stream
}

// SpeedConfig contains emulation speed settings.
type SpeedConfig struct {
	Multiplier       float64   `json:"multiplier" yaml:"multiplier"`
	TurboMultipliers []float64 `json:"turboMultipliers" yaml:"turboMultipliers"` // cycled by the speed hotkey
}

// RewindConfig contains rewind feature settings.
type RewindConfig struct {
	Enabled   bool `json:"enabled" yaml:"enabled"`     // Default: false (off due to RAM usage)
	FrameStep int  `json:"frameStep" yaml:"frameStep"` // capture every N emulated frames
	Capacity  int  `json:"capacity" yaml:"capacity"`   // snapshots retained
	Compress  bool `json:"compress" yaml:"compress"`
}

// PacingConfig contains real-time pacing limits.
type PacingConfig struct {
	MaxFrameSkip     int `json:"maxFrameSkip" yaml:"maxFrameSkip"`
	StepDeadlineMs   int `json:"stepDeadlineMs" yaml:"stepDeadlineMs"`
	SleepThresholdUs int `json:"sleepThresholdUs" yaml:"sleepThresholdUs"`
}

// SavesConfig contains save slot storage settings.
type SavesConfig struct {
	Dir              string `json:"dir,omitempty" yaml:"dir,omitempty"` // empty = default saves dir
	Backend          string `json:"backend" yaml:"backend"`             // "file" or "sqlite"
	ResumeOnStart    bool   `json:"resumeOnStart" yaml:"resumeOnStart"`
	SaveResumeOnExit bool   `json:"saveResumeOnExit" yaml:"saveResumeOnExit"`
}

// InputConfig contains binding overrides layered over the defaults.
type InputConfig struct {
	Keyboard map[string]string `json:"keyboard,omitempty" yaml:"keyboard,omitempty"` // button name -> key name override
	Gamepad  map[string]string `json:"gamepad,omitempty" yaml:"gamepad,omitempty"`   // button name -> pad button name override
	Hotkeys  map[string]string `json:"hotkeys,omitempty" yaml:"hotkeys,omitempty"`   // chord -> command, "none" unbinds
}

// WindowConfig contains presentation window settings.
type WindowConfig struct {
	Scale      int  `json:"scale" yaml:"scale"`
	Fullscreen bool `json:"fullscreen" yaml:"fullscreen"`
}

// Save store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)
