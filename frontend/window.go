//go:build !headless

package frontend

import (
	"context"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/user-none/emudriver/config"
	"github.com/user-none/emudriver/input"
	"github.com/user-none/emudriver/storage"
)

// messageTTL is how long a notification stays on screen.
const messageTTL = 2 * time.Second

// window implements ebiten.Game on top of a running session.
type window struct {
	ctx      context.Context
	session  Session
	mapper   *input.Mapper
	tracker  *tracker
	pressed  map[input.PhysicalInput]bool
	gamepads []ebiten.GamepadID

	offscreen *ebiten.Image
	rgba      []byte
	lastSeq   uint64
	drawOpts  ebiten.DrawImageOptions

	screenshotDir string
	scale         int
	par           float64

	lastMsg string
	notice  string
	shownAt time.Time
	overlay string
}

// Run opens a window presenting s and blocks until the window is closed
// or ctx is cancelled. Window input is forwarded to the session's mapper.
func Run(ctx context.Context, s Session, wc config.WindowConfig) error {
	info := s.SystemInfo()
	w, h := windowSize(info.ScreenWidth, info.MaxScreenHeight, info.PixelAspectRatio, wc.Scale)

	ebiten.SetWindowTitle(info.ConsoleName)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(w, h)
	ebiten.SetFullscreen(wc.Fullscreen)
	ebiten.SetTPS(60)

	win := &window{
		ctx:     ctx,
		session: s,
		mapper:  s.Mapper(),
		tracker: newTracker(),
		pressed: make(map[input.PhysicalInput]bool),
		scale:   wc.Scale,
		par:     info.PixelAspectRatio,
	}
	if dir, err := storage.GetScreenshotDir(); err != nil {
		log.Printf("Screenshots disabled: %v", err)
	} else {
		win.screenshotDir = dir
	}
	err := ebiten.RunGame(win)
	for _, ev := range win.tracker.ReleaseAll() {
		win.mapper.Handle(ev)
	}
	if err == ebiten.Termination {
		return nil
	}
	return err
}

// Update implements ebiten.Game.
func (w *window) Update() error {
	if w.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) && w.screenshotDir != "" {
		w.screenshot(now)
	}

	w.gamepads = ebiten.AppendGamepadIDs(w.gamepads[:0])
	w.pressed = pollPressed(w.pressed, w.gamepads)
	for _, ev := range w.tracker.Diff(w.pressed) {
		w.mapper.Handle(ev)
	}

	if msg := w.session.Message(); msg != w.lastMsg {
		w.lastMsg = msg
		w.show(msg, now)
	}
	w.overlay = ""
	if w.notice != "" && now.Sub(w.shownAt) < messageTTL {
		w.overlay = w.notice
	}
	return nil
}

func (w *window) show(msg string, now time.Time) {
	w.notice = msg
	w.shownAt = now
}

func (w *window) screenshot(now time.Time) {
	frame, _ := w.session.Framebuffer().Read()
	path, err := saveScreenshot(w.screenshotDir, w.session.GameID(), frame, w.scale, w.par, now)
	if err != nil {
		log.Printf("Screenshot failed: %v", err)
		w.show("Screenshot failed", now)
		return
	}
	log.Printf("Screenshot saved to %s", path)
	w.show("Screenshot saved", now)
}

// Draw implements ebiten.Game.
func (w *window) Draw(screen *ebiten.Image) {
	fb := w.session.Framebuffer()
	if fb.Seq() != w.lastSeq || w.offscreen == nil {
		frame, seq := fb.Read()
		rgba := toRGBA(w.rgba, frame)
		if rgba == nil {
			return
		}
		w.rgba = rgba
		w.lastSeq = seq
		if w.offscreen == nil || w.offscreen.Bounds().Dx() != frame.Width || w.offscreen.Bounds().Dy() != frame.Height {
			w.offscreen = ebiten.NewImage(frame.Width, frame.Height)
		}
		w.offscreen.WritePixels(rgba)
	}

	b := w.offscreen.Bounds()
	scale, offX, offY := fitScale(screen.Bounds().Dx(), screen.Bounds().Dy(), b.Dx(), b.Dy())
	w.drawOpts = ebiten.DrawImageOptions{}
	w.drawOpts.GeoM.Scale(scale, scale)
	w.drawOpts.GeoM.Translate(offX, offY)
	w.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(w.offscreen, &w.drawOpts)

	if w.overlay != "" {
		ebitenutil.DebugPrintAt(screen, w.overlay, 8, 8)
	}
}

// Layout implements ebiten.Game.
func (w *window) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := 1.0
	if m := ebiten.Monitor(); m != nil {
		s = m.DeviceScaleFactor()
	}
	return int(float64(outsideWidth) * s), int(float64(outsideHeight) * s)
}
