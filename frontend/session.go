package frontend

import (
	emucore "github.com/user-none/emudriver/api"
	"github.com/user-none/emudriver/driver"
	"github.com/user-none/emudriver/input"
)

// Session is the part of a driver the window needs.
type Session interface {
	SystemInfo() emucore.SystemInfo
	Framebuffer() *driver.Framebuffer
	Mapper() *input.Mapper
	Message() string
	GameID() string
}

var _ Session = (*driver.Driver)(nil)

// windowSize returns the initial window size for a screen of width x
// height pixels with the given pixel aspect ratio.
func windowSize(width, height int, par float64, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	if par <= 0 {
		par = 1
	}
	return int(float64(width*scale)*par + 0.5), height * scale
}
