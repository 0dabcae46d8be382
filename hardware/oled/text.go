package oled

import (
	"image/color"

	"github.com/juju/errors"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var white = color.RGBA{0xff, 0xff, 0xff, 0xff}

// Font wraps tinyfont with metrics needed for row layout.
type Font struct {
	f tinyfont.Fonter

	CharWidth  int // advance of "0", fonts used here are monospace
	Ascent     int // baseline offset from row top
	LineHeight int
}

func LoadFont(name string) (*Font, error) {
	var f tinyfont.Fonter
	switch name {
	case "", "proggy":
		f = &proggy.TinySZ8pt7b
	case "tomthumb":
		f = &tinyfont.TomThumb
	default:
		return nil, errors.NotValidf("font=%s (valid: proggy, tomthumb)", name)
	}
	return NewFont(f), nil
}

func NewFont(f tinyfont.Fonter) *Font {
	_, outbox := tinyfont.LineWidth(f, "0")
	info := f.GetGlyph('M').Info()
	ascent := -int(info.YOffset)
	if ascent <= 0 {
		ascent = int(info.Height)
	}
	return &Font{
		f:          f,
		CharWidth:  int(outbox),
		Ascent:     ascent,
		LineHeight: int(f.GetYAdvance()),
	}
}

// Chars returns how many characters fit into width pixels.
func (self *Font) Chars(width int) int {
	if self.CharWidth <= 0 {
		return 0
	}
	return width / self.CharWidth
}

func (self *Font) TextWidth(s string) int {
	_, outbox := tinyfont.LineWidth(self.f, s)
	return int(outbox)
}

// DrawText draws s with row top at y. on=false draws dark glyphs, used over highlight band.
func (self *Font) DrawText(fb *Framebuffer, x, y int, s string, on bool) {
	tinyfont.WriteLine(fb.Displayer(!on), self.f, int16(x), int16(y+self.Ascent), s, white)
}
