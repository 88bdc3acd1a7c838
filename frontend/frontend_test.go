package frontend

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/input"
)

func TestToRGBA(t *testing.T) {
	tests := []struct {
		name  string
		frame emucore.Frame
		want  []byte
	}{
		{
			name: "rgba with stride padding",
			frame: emucore.Frame{
				Pixels: []byte{1, 2, 3, 4, 9, 9, 9, 9, 5, 6, 7, 8, 9, 9, 9, 9},
				Width:  1, Height: 2, Stride: 8, Format: emucore.PixelRGBA8888,
			},
			want: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name: "xrgb",
			frame: emucore.Frame{
				Pixels: []byte{0x30, 0x20, 0x10, 0x00},
				Width:  1, Height: 1, Stride: 4, Format: emucore.PixelXRGB8888,
			},
			want: []byte{0x10, 0x20, 0x30, 0xFF},
		},
		{
			name: "rgb565",
			frame: emucore.Frame{
				// 0xF800 red, 0x07E0 green, 0x001F blue
				Pixels: []byte{0x00, 0xF8, 0xE0, 0x07, 0x1F, 0x00},
				Width:  3, Height: 1, Stride: 6, Format: emucore.PixelRGB565,
			},
			want: []byte{
				0xFF, 0x00, 0x00, 0xFF,
				0x00, 0xFF, 0x00, 0xFF,
				0x00, 0x00, 0xFF, 0xFF,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toRGBA(nil, tt.frame)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestToRGBA_Invalid(t *testing.T) {
	if toRGBA(nil, emucore.Frame{}) != nil {
		t.Fatal("empty frame should convert to nil")
	}
	short := emucore.Frame{Pixels: make([]byte, 7), Width: 1, Height: 2, Stride: 4}
	if toRGBA(nil, short) != nil {
		t.Fatal("short pixel data should convert to nil")
	}
	narrow := emucore.Frame{Pixels: make([]byte, 16), Width: 2, Height: 2, Stride: 4}
	if toRGBA(nil, narrow) != nil {
		t.Fatal("width beyond stride should convert to nil")
	}
}

func TestToRGBA_ReusesBuffer(t *testing.T) {
	buf := make([]byte, 64)
	f := emucore.Frame{Pixels: make([]byte, 16), Width: 2, Height: 2, Stride: 8}
	got := toRGBA(buf, f)
	if len(got) != 16 || &got[0] != &buf[0] {
		t.Fatal("expected conversion into the supplied buffer")
	}
}

func TestFitScale(t *testing.T) {
	scale, offX, offY := fitScale(800, 600, 256, 240)
	if scale != 2.5 {
		t.Fatalf("expected scale 2.5, got %v", scale)
	}
	if offX != 80 || offY != 0 {
		t.Fatalf("expected offsets (80, 0), got (%v, %v)", offX, offY)
	}
	if s, _, _ := fitScale(800, 600, 0, 240); s != 0 {
		t.Fatalf("empty image should have scale 0, got %v", s)
	}
}

func TestWindowSize(t *testing.T) {
	if w, h := windowSize(256, 240, 8.0/7.0, 3); w != 878 || h != 720 {
		t.Fatalf("expected 878x720, got %dx%d", w, h)
	}
	if w, h := windowSize(320, 224, 0, 0); w != 320 || h != 224 {
		t.Fatalf("expected defaults to give 320x224, got %dx%d", w, h)
	}
}

func TestTracker(t *testing.T) {
	tr := newTracker()
	a := input.Key("A")
	start := input.PadButton(0, "Start")

	evs := tr.Diff(map[input.PhysicalInput]bool{a: true, start: true})
	want := []input.Event{{Input: a, Pressed: true}, {Input: start, Pressed: true}}
	if !equalEvents(evs, want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}

	if evs := tr.Diff(map[input.PhysicalInput]bool{a: true, start: true}); len(evs) != 0 {
		t.Fatalf("held inputs should not repeat, got %v", evs)
	}

	// The pad disconnects while A stays held.
	evs = tr.Diff(map[input.PhysicalInput]bool{a: true})
	want = []input.Event{{Input: start}}
	if !equalEvents(evs, want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}

	evs = tr.ReleaseAll()
	want = []input.Event{{Input: a}}
	if !equalEvents(evs, want) {
		t.Fatalf("expected %v, got %v", want, evs)
	}
}

func TestTrackerFeedsMapper(t *testing.T) {
	b := input.NewBindings()
	if err := b.BindButton(input.Key("X"), 0, emucore.ButtonA); err != nil {
		t.Fatalf("BindButton: %v", err)
	}
	m := input.NewMapper(b)
	tr := newTracker()

	for _, ev := range tr.Diff(map[input.PhysicalInput]bool{input.Key("X"): true}) {
		m.Handle(ev)
	}
	if !m.Frame().Pressed(0, emucore.ButtonA) {
		t.Fatal("expected button A held for player 1")
	}
	for _, ev := range tr.ReleaseAll() {
		m.Handle(ev)
	}
	if m.Frame().Players[0] != 0 {
		t.Fatal("expected all buttons released")
	}
}

func TestScreenshotImage(t *testing.T) {
	f := emucore.Frame{
		Pixels: []byte{
			0xFF, 0, 0, 0xFF, 0, 0xFF, 0, 0xFF,
			0, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		},
		Width: 2, Height: 2, Stride: 8,
	}
	img, err := screenshotImage(f, 2, 1.0)
	if err != nil {
		t.Fatalf("screenshotImage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("expected 4x4, got %dx%d", b.Dx(), b.Dy())
	}
	// Nearest neighbour keeps each source pixel as a 2x2 block.
	if r, g, b, _ := img.At(1, 1).RGBA(); r>>8 != 0xFF || g != 0 || b != 0 {
		t.Fatalf("expected red at (1,1), got %v", img.At(1, 1))
	}
	if _, _, b, _ := img.At(0, 3).RGBA(); b>>8 != 0xFF {
		t.Fatalf("expected blue at (0,3), got %v", img.At(0, 3))
	}

	native, err := screenshotImage(f, 1, 1.0)
	if err != nil {
		t.Fatalf("screenshotImage: %v", err)
	}
	if b := native.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("expected native 2x2, got %dx%d", b.Dx(), b.Dy())
	}

	if _, err := screenshotImage(emucore.Frame{}, 1, 1.0); !errors.Is(err, errEmptyFrame) {
		t.Fatalf("expected errEmptyFrame, got %v", err)
	}
}

func TestSaveScreenshot(t *testing.T) {
	dir := t.TempDir()
	f := emucore.Frame{Pixels: make([]byte, 4*3*4), Width: 4, Height: 3, Stride: 16}
	now := time.UnixMilli(1700000000123)

	path, err := saveScreenshot(dir, "cbf43926", f, 3, 1.0, now)
	if err != nil {
		t.Fatalf("saveScreenshot: %v", err)
	}
	if want := filepath.Join(dir, "cbf43926", "1700000000123.png"); path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	cfg, err := png.DecodeConfig(file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 9 {
		t.Fatalf("expected 12x9, got %dx%d", cfg.Width, cfg.Height)
	}
}

func equalEvents(a, b []input.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
