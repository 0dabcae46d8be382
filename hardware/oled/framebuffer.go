package oled

import (
	"image/color"
	"strings"

	"tinygo.org/x/drivers"
)

const (
	Width  = 128
	Height = 64
	Pages  = Height / 8
)

// Framebuffer is 1 bit per pixel, page addressed exactly as controller RAM:
// byte x+page*Width holds 8 vertical pixels, bit y%8 is row y.
type Framebuffer struct {
	buf [Width * Pages]byte
}

func NewFramebuffer() *Framebuffer { return &Framebuffer{} }

func (fb *Framebuffer) Clear(on bool) {
	var b byte
	if on {
		b = 0xff
	}
	for i := range fb.buf {
		fb.buf[i] = b
	}
}

// SetPixel panics on out of range coordinates; drawing helpers clip before calling it.
func (fb *Framebuffer) SetPixel(x, y int, on bool) {
	if !inBounds(x, y) {
		panic("code error oled.SetPixel out of range")
	}
	idx := x + (y/8)*Width
	mask := byte(1) << uint(y%8)
	if on {
		fb.buf[idx] |= mask
	} else {
		fb.buf[idx] &^= mask
	}
}

func (fb *Framebuffer) Pixel(x, y int) bool {
	if !inBounds(x, y) {
		return false
	}
	return fb.buf[x+(y/8)*Width]&(1<<uint(y%8)) != 0
}

func (fb *Framebuffer) FillRect(x, y, w, h int, on bool) {
	x0, y0 := clampInt(x, 0, Width), clampInt(y, 0, Height)
	x1, y1 := clampInt(x+w, 0, Width), clampInt(y+h, 0, Height)
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			fb.SetPixel(xx, yy, on)
		}
	}
}

// Invert flips every pixel in clipped rectangle.
func (fb *Framebuffer) Invert(x, y, w, h int) {
	x0, y0 := clampInt(x, 0, Width), clampInt(y, 0, Height)
	x1, y1 := clampInt(x+w, 0, Width), clampInt(y+h, 0, Height)
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			fb.SetPixel(xx, yy, !fb.Pixel(xx, yy))
		}
	}
}

func (fb *Framebuffer) Bytes() []byte { return fb.buf[:] }

func (fb *Framebuffer) Page(p int) []byte {
	return fb.buf[p*Width : (p+1)*Width]
}

// String2 renders pixels as text, two chars per pixel to keep aspect ratio.
func (fb *Framebuffer) String2() string {
	b := strings.Builder{}
	b.Grow((Width*2*3 + 1) * Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if fb.Pixel(x, y) {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

// Displayer adapts framebuffer to tinyfont/drivers drawing.
// Any non-black color turns pixel on, unless inverted.
type Displayer struct {
	fb     *Framebuffer
	invert bool
}

var _ drivers.Displayer = Displayer{}

func (fb *Framebuffer) Displayer(invert bool) Displayer { return Displayer{fb: fb, invert: invert} }

func (d Displayer) Size() (x, y int16) { return Width, Height }

func (d Displayer) SetPixel(x, y int16, c color.RGBA) {
	if !inBounds(int(x), int(y)) {
		return
	}
	on := c.R != 0 || c.G != 0 || c.B != 0
	d.fb.SetPixel(int(x), int(y), on != d.invert)
}

// Display is a no-op, transfer is explicit in event loop.
func (d Displayer) Display() error { return nil }

func inBounds(x, y int) bool { return x >= 0 && x < Width && y >= 0 && y < Height }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
