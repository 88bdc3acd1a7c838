package emucore

import "time"

// Region represents a console video region.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// String returns the display name of the region.
func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "NTSC"
	case RegionPAL:
		return "PAL"
	default:
		return "Unknown"
	}
}

// ParseRegion converts a config string to a Region. The bool reports
// whether the name was recognised.
func ParseRegion(s string) (Region, bool) {
	switch s {
	case "ntsc", "NTSC", "us", "jp":
		return RegionNTSC, true
	case "pal", "PAL", "eu":
		return RegionPAL, true
	default:
		return RegionNTSC, false
	}
}

// Timing holds the video timing for the current region.
// CPU clocks are reported separately through Backend.ClockRate.
type Timing struct {
	FPS       float64
	Scanlines int
	Region    Region
}

// FrameDuration returns the wall-clock length of one video frame.
// A zero or negative FPS yields 0.
func (t Timing) FrameDuration() time.Duration {
	if t.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / t.FPS)
}
