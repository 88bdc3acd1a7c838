// Package frontend presents a running driver in a window and feeds window
// input events to its mapper.
package frontend

import (
	emucore "github.com/user-none/emudriver/api"
)

// toRGBA converts the visible area of f into tightly packed RGBA8888
// pixels, reusing dst when it is large enough. It returns nil if the frame
// is empty or its pixel data is short.
func toRGBA(dst []byte, f emucore.Frame) []byte {
	if f.Width <= 0 || f.Height <= 0 || f.Stride <= 0 {
		return nil
	}
	bpp := f.Format.BytesPerPixel()
	if f.Width*bpp > f.Stride || len(f.Pixels) < f.Stride*(f.Height-1)+f.Width*bpp {
		return nil
	}
	n := f.Width * f.Height * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	o := 0
	for y := 0; y < f.Height; y++ {
		row := f.Pixels[y*f.Stride:]
		switch f.Format {
		case emucore.PixelRGBA8888:
			copy(dst[o:o+f.Width*4], row[:f.Width*4])
			o += f.Width * 4
		case emucore.PixelXRGB8888:
			// Little-endian 0xXXRRGGBB words.
			for x := 0; x < f.Width; x++ {
				p := row[x*4:]
				dst[o], dst[o+1], dst[o+2], dst[o+3] = p[2], p[1], p[0], 0xFF
				o += 4
			}
		case emucore.PixelRGB565:
			for x := 0; x < f.Width; x++ {
				v := uint16(row[x*2]) | uint16(row[x*2+1])<<8
				r := byte(v >> 11 & 0x1F)
				g := byte(v >> 5 & 0x3F)
				b := byte(v & 0x1F)
				dst[o] = r<<3 | r>>2
				dst[o+1] = g<<2 | g>>4
				dst[o+2] = b<<3 | b>>2
				dst[o+3] = 0xFF
				o += 4
			}
		default:
			return nil
		}
	}
	return dst
}

// fitScale returns the largest uniform scale that fits a w x h image on a
// screenW x screenH target, with the offsets that center it.
func fitScale(screenW, screenH, w, h int) (scale, offX, offY float64) {
	if w <= 0 || h <= 0 {
		return 0, 0, 0
	}
	scale = float64(screenW) / float64(w)
	if sy := float64(screenH) / float64(h); sy < scale {
		scale = sy
	}
	offX = (float64(screenW) - float64(w)*scale) / 2
	offY = (float64(screenH) - float64(h)*scale) / 2
	return scale, offX, offY
}
