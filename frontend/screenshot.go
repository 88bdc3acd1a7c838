package frontend

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	xdraw "golang.org/x/image/draw"

	emucore "github.com/user-none/emudriver/api"
)

// errEmptyFrame is returned when there is no frame to capture.
var errEmptyFrame = errors.New("no frame to capture")

// screenshotImage converts f to an image, pixel-scaled by scale and
// stretched horizontally by the pixel aspect ratio.
func screenshotImage(f emucore.Frame, scale int, par float64) (*image.RGBA, error) {
	rgba := toRGBA(nil, f)
	if rgba == nil {
		return nil, errEmptyFrame
	}
	src := &image.RGBA{Pix: rgba, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}

	w, h := windowSize(f.Width, f.Height, par, scale)
	if w == f.Width && h == f.Height {
		return src, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// saveScreenshot writes f as a PNG under dir/gameID named by the capture
// time and returns the file path.
func saveScreenshot(dir, gameID string, f emucore.Frame, scale int, par float64, now time.Time) (string, error) {
	img, err := screenshotImage(f, scale, par)
	if err != nil {
		return "", err
	}

	dir = filepath.Join(dir, gameID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	path := filepath.Join(dir, strconv.FormatInt(now.UnixMilli(), 10)+".png")

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return path, out.Close()
}
