package oled

import (
	"image"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
)

// QR draws text as QR code centered in rectangle (x,y,w,h), dark modules are lit pixels.
// Largest integer module scale that fits is used.
func (fb *Framebuffer) QR(text string, x, y, w, h int, level qrcode.RecoveryLevel) error {
	qr, err := qrcode.New(text, level)
	if err != nil {
		return errors.Annotate(err, "QR")
	}
	qr.DisableBorder = true
	bitmap := qr.Bitmap()
	n := len(bitmap)
	side := min(w, h)
	if n == 0 || n > side {
		return errors.Errorf("QR modules=%d > area=%s", n, image.Pt(w, h).String())
	}
	scale := side / n
	ox := x + (w-n*scale)/2
	oy := y + (h-n*scale)/2
	fb.FillRect(x, y, w, h, false)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if bitmap[row][col] {
				fb.FillRect(ox+col*scale, oy+row*scale, scale, scale, true)
			}
		}
	}
	return nil
}
