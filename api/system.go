package emucore

// CoreOptionType identifies the kind of core option.
type CoreOptionType int

const (
	CoreOptionBool CoreOptionType = iota
	CoreOptionSelect
	CoreOptionRange
)

// CoreOption describes a configurable backend setting.
type CoreOption struct {
	Key         string
	Label       string
	Description string
	Type        CoreOptionType
	Default     string
	Values      []string // Options for Select type
	Min         int      // Minimum for Range type
	Max         int      // Maximum for Range type
	Step        int      // Step size for Range type

	// RequiresReload marks options the backend only reads at construction.
	// Changing one requires replacing the backend instance.
	RequiresReload bool
}

// SystemInfo describes a backend for the driver and frontends.
type SystemInfo struct {
	// Name is the identity tag embedded in save states.
	Name string
	// StateVersion is bumped whenever the serialized layout changes.
	StateVersion uint32

	ConsoleName      string
	Extensions       []string
	ScreenWidth      int
	MaxScreenHeight  int
	PixelAspectRatio float64
	Players          int
	Buttons          []Button
	CoreOptions      []CoreOption
}

// Option returns the declared option with the given key.
func (si SystemInfo) Option(key string) (CoreOption, bool) {
	for _, o := range si.CoreOptions {
		if o.Key == key {
			return o, true
		}
	}
	return CoreOption{}, false
}

// DefaultOptions returns the default value of every declared option.
func (si SystemInfo) DefaultOptions() map[string]string {
	opts := make(map[string]string, len(si.CoreOptions))
	for _, o := range si.CoreOptions {
		opts[o.Key] = o.Default
	}
	return opts
}

// Media is a loaded ROM or disc image.
type Media struct {
	Name string // basename, for display
	Data []byte
	// ID identifies the media for save slots (CRC32 hex).
	ID string
}

// Factory creates backend instances and provides system metadata.
type Factory interface {
	// SystemInfo returns system metadata.
	SystemInfo() SystemInfo

	// Create builds a new backend for the media using the given options.
	// Options absent from the map take their declared defaults.
	Create(media Media, opts map[string]string) (Backend, error)

	// DetectRegion auto-detects the region from media data.
	// The bool return indicates whether the region could be determined.
	DetectRegion(data []byte) (Region, bool)
}

// DisplayAspectRatio returns the display aspect ratio of a width x height
// picture whose pixels have the given pixel aspect ratio.
func DisplayAspectRatio(width, height int, par float64) float64 {
	if height == 0 {
		return 0
	}
	return float64(width) / float64(height) * par
}
