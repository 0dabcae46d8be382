package oled

import (
	"image/color"
	"math/rand"
	"strings"
	"testing"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramebufferLayout(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	assert.Equal(t, Width*Height/8, len(fb.Bytes()))

	fb.SetPixel(0, 0, true)
	assert.Equal(t, byte(0x01), fb.Bytes()[0])
	fb.SetPixel(5, 13, true)
	assert.Equal(t, byte(1<<5), fb.Bytes()[5+1*Width])
	fb.SetPixel(127, 63, true)
	assert.Equal(t, byte(0x80), fb.Bytes()[127+7*Width])
	assert.Equal(t, byte(1<<5), fb.Page(1)[5])

	fb.Clear(true)
	for _, b := range fb.Bytes() {
		require.Equal(t, byte(0xff), b)
	}
	fb.Clear(false)
	for _, b := range fb.Bytes() {
		require.Equal(t, byte(0), b)
	}
}

func TestFramebufferSetClearRestores(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(1))
	fb := NewFramebuffer()
	for i := range fb.buf {
		fb.buf[i] = byte(rnd.Intn(256))
	}
	for i := 0; i < 1000; i++ {
		x, y := rnd.Intn(Width), rnd.Intn(Height)
		idx := x + (y/8)*Width
		before := fb.buf[idx]
		bit := before&(1<<uint(y%8)) != 0

		fb.SetPixel(x, y, true)
		assert.True(t, fb.Pixel(x, y))
		fb.SetPixel(x, y, false)
		assert.False(t, fb.Pixel(x, y))
		fb.SetPixel(x, y, bit)
		require.Equal(t, before, fb.buf[idx], "x=%d y=%d", x, y)
	}
}

func TestFramebufferSetPixelOutOfRange(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	assert.Panics(t, func() { fb.SetPixel(Width, 0, true) })
	assert.Panics(t, func() { fb.SetPixel(0, -1, true) })
	assert.False(t, fb.Pixel(-1, 0))
}

func TestFramebufferFillRectClips(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	fb.FillRect(120, 60, 20, 20, true)
	count := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if fb.Pixel(x, y) {
				count++
				assert.True(t, x >= 120 && y >= 60)
			}
		}
	}
	assert.Equal(t, 8*4, count)

	fb.Invert(118, 60, 4, 4)
	assert.True(t, fb.Pixel(118, 61))
	assert.False(t, fb.Pixel(121, 61))
}

func TestDisplayerClipsAndInverts(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	d := fb.Displayer(false)
	x, y := d.Size()
	assert.Equal(t, int16(Width), x)
	assert.Equal(t, int16(Height), y)
	d.SetPixel(-1, 0, color.RGBA{R: 1})
	d.SetPixel(0, Height, color.RGBA{R: 1})
	d.SetPixel(3, 4, color.RGBA{G: 1})
	assert.True(t, fb.Pixel(3, 4))
	assert.NoError(t, d.Display())

	fb.Displayer(true).SetPixel(3, 4, white)
	assert.False(t, fb.Pixel(3, 4))
}

func TestString2(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	blank := strings.Repeat(strings.Repeat("  ", Width)+"\n", Height)
	assert.Equal(t, blank, fb.String2())
	fb.SetPixel(1, 0, true)
	lines := strings.Split(fb.String2(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "  ██  "))
}

func TestQR(t *testing.T) {
	t.Parallel()

	fb := NewFramebuffer()
	fb.Clear(true)
	const text = "http://192.168.1.23/"
	require.NoError(t, fb.QR(text, 0, 10, Width, Height-10, qrcode.Low))

	qr, err := qrcode.New(text, qrcode.Low)
	require.NoError(t, err)
	qr.DisableBorder = true
	bitmap := qr.Bitmap()
	n := len(bitmap)
	scale := (Height - 10) / n
	ox := (Width - n*scale) / 2
	oy := 10 + (Height-10-n*scale)/2
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			require.Equal(t, bitmap[row][col], fb.Pixel(ox+col*scale, oy+row*scale), "module %d,%d", col, row)
		}
	}
	// header area untouched
	assert.True(t, fb.Pixel(0, 0))
	assert.False(t, fb.Pixel(0, 10))

	err = fb.QR(strings.Repeat("long text ", 40), 0, 0, 20, 20, qrcode.Low)
	assert.Error(t, err)
}
