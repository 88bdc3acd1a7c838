package driver

import (
	"sync"

	emucore "github.com/user-none/emudriver/api"
)

// Framebuffer is the presentation boundary. The run loop publishes
// finished frames; the frontend reads the latest one. It uses separate
// write and read buffers so the loop can publish while the reader keeps
// its copy.
type Framebuffer struct {
	mu          sync.Mutex
	writePixels []byte
	readPixels  []byte
	width       int
	height      int
	stride      int
	format      emucore.PixelFormat
	seq         uint64
}

// NewFramebuffer creates a framebuffer pre-allocated for width x height
// pixels at 4 bytes per pixel. Larger frames grow the buffers.
func NewFramebuffer(width, height int) *Framebuffer {
	size := width * height * 4
	return &Framebuffer{
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
	}
}

// Update copies a frame from the run loop.
func (fb *Framebuffer) Update(f *emucore.Frame) {
	if f == nil {
		return
	}
	n := f.Stride * f.Height
	if n > len(f.Pixels) {
		n = len(f.Pixels)
	}
	fb.mu.Lock()
	if n > len(fb.writePixels) {
		fb.writePixels = make([]byte, n)
	}
	copy(fb.writePixels[:n], f.Pixels[:n])
	fb.width = f.Width
	fb.height = f.Height
	fb.stride = f.Stride
	fb.format = f.Format
	fb.seq++
	fb.mu.Unlock()
}

// Read returns a copy of the latest frame and its sequence number, which
// increases with every Update. The pixels stay valid until the next Read.
func (fb *Framebuffer) Read() (emucore.Frame, uint64) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := fb.stride * fb.height
	if n > len(fb.writePixels) {
		n = len(fb.writePixels)
	}
	if n > len(fb.readPixels) {
		fb.readPixels = make([]byte, n)
	}
	copy(fb.readPixels[:n], fb.writePixels[:n])
	return emucore.Frame{
		Pixels: fb.readPixels[:n],
		Width:  fb.width,
		Height: fb.height,
		Stride: fb.stride,
		Format: fb.format,
	}, fb.seq
}

// Seq returns the number of frames published so far.
func (fb *Framebuffer) Seq() uint64 {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.seq
}
