package emucore

import (
	"math"
	"testing"
	"time"
)

func TestDisplayAspectRatio(t *testing.T) {
	tests := []struct {
		w, h int
		par  float64
		want float64
	}{
		{320, 224, 32.0 / 35.0, (320.0 / 224.0) * (32.0 / 35.0)}, // wide mode
		{256, 192, 8.0 / 7.0, (256.0 / 192.0) * (8.0 / 7.0)},
		{256, 240, 8.0 / 7.0, (256.0 / 240.0) * (8.0 / 7.0)}, // PAL height
		{160, 144, 1, 160.0 / 144.0},
	}
	for _, tc := range tests {
		if got := DisplayAspectRatio(tc.w, tc.h, tc.par); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("DisplayAspectRatio(%d, %d, %.4f) = %f, want %f", tc.w, tc.h, tc.par, got, tc.want)
		}
	}
}

func TestDisplayAspectRatioZeroHeight(t *testing.T) {
	if got := DisplayAspectRatio(320, 0, 1.0); got != 0 {
		t.Errorf("DisplayAspectRatio with zero height = %f, want 0", got)
	}
}

func TestSystemInfoOptions(t *testing.T) {
	si := SystemInfo{
		CoreOptions: []CoreOption{
			{Key: "region", Default: "ntsc", RequiresReload: true},
			{Key: "sprite_limit", Default: "true"},
		},
	}

	opt, ok := si.Option("region")
	if !ok || !opt.RequiresReload {
		t.Fatalf("Option(region) = %+v, %v; want reload option", opt, ok)
	}
	if _, ok := si.Option("missing"); ok {
		t.Error("Option(missing) should not be found")
	}

	defaults := si.DefaultOptions()
	if len(defaults) != 2 || defaults["region"] != "ntsc" || defaults["sprite_limit"] != "true" {
		t.Errorf("DefaultOptions() = %v", defaults)
	}
}

func TestParseButtonRoundTrip(t *testing.T) {
	for id := ButtonUp; id < numButtons; id++ {
		name := ButtonName(id)
		got, ok := ParseButton(name)
		if !ok || got != id {
			t.Errorf("ParseButton(%q) = %d, %v; want %d", name, got, ok, id)
		}
	}
	if ButtonName(-1) != "" || ButtonName(numButtons) != "" {
		t.Error("out of range ButtonName should be empty")
	}
	if _, ok := ParseButton("Turbo"); ok {
		t.Error("ParseButton(Turbo) should fail")
	}
}

func TestInputFramePressed(t *testing.T) {
	var f InputFrame
	f.Players[1] = 1<<ButtonA | 1<<ButtonStart

	if !f.Pressed(1, ButtonA) || !f.Pressed(1, ButtonStart) {
		t.Error("expected A and Start pressed for player 1")
	}
	if f.Pressed(0, ButtonA) {
		t.Error("player 0 should have nothing pressed")
	}
	if f.Pressed(MaxPlayers, ButtonA) || f.Pressed(-1, ButtonA) {
		t.Error("out of range player should report false")
	}
}

func TestTimingFrameDuration(t *testing.T) {
	if d := (Timing{FPS: 50}).FrameDuration(); d != 20*time.Millisecond {
		t.Errorf("50fps frame duration = %v, want 20ms", d)
	}
	if d := (Timing{}).FrameDuration(); d != 0 {
		t.Errorf("zero fps frame duration = %v, want 0", d)
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in   string
		want Region
		ok   bool
	}{
		{"ntsc", RegionNTSC, true},
		{"PAL", RegionPAL, true},
		{"eu", RegionPAL, true},
		{"mars", RegionNTSC, false},
	}
	for _, tt := range tests {
		got, ok := ParseRegion(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRegion(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if RegionPAL.String() != "PAL" || Region(9).String() != "Unknown" {
		t.Error("unexpected Region.String output")
	}
}

func TestTickResultHas(t *testing.T) {
	r := TickResult{Events: []Event{{Kind: EventSRAMDirty}}}
	if !r.Has(EventSRAMDirty) || r.Has(EventTimingChanged) {
		t.Errorf("Has reported wrong events for %+v", r.Events)
	}
	if PixelRGB565.BytesPerPixel() != 2 || PixelRGBA8888.BytesPerPixel() != 4 {
		t.Error("unexpected BytesPerPixel")
	}
}
