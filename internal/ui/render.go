package ui

import (
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/internal/nav"
)

func (self *UI) render(now time.Time) {
	st := &self.state
	self.renderHeader()
	switch st.Tab {
	case nav.TabFiles:
		if self.library.Len() == 0 {
			self.text(0, self.config.MsgNoFiles)
			break
		}
		self.renderList(&st.Files, func(i int) (string, string) {
			t, _ := self.library.Get(i)
			return t.Name, ""
		})

	case nav.TabNetwork:
		self.renderNetwork()

	case nav.TabAccessories:
		if len(st.Devices) == 0 {
			self.text(0, self.config.MsgNoAccessories)
			break
		}
		self.renderList(&st.Accessories, func(i int) (string, string) {
			a := st.Devices[i]
			return a.Name, a.Flags()
		})

	case nav.TabPlayer:
		self.renderPlayer(now)
	}
}

// renderHeader: tab name centered, arrows at extreme columns.
func (self *UI) renderHeader() {
	title := self.state.Tab.String()
	if self.state.Tab == nav.TabAccessories && self.state.Scanning {
		title += "*"
	}
	x := (oled.Width - self.font.TextWidth(title)) / 2
	self.font.DrawText(self.fb, x, 0, title, true)
	self.font.DrawText(self.fb, 0, 0, "<", true)
	self.font.DrawText(self.fb, oled.Width-self.font.CharWidth, 0, ">", true)
}

// renderList draws visible window, suffix is right aligned, cursor row inverted.
func (self *UI) renderList(l *nav.List, item func(i int) (text, suffix string)) {
	h := self.font.LineHeight
	chars := self.font.Chars(oled.Width)
	from, to := l.Window()
	for i := from; i < to; i++ {
		y := ListTop + (i-from)*h
		text, suffix := item(i)
		width := chars
		if suffix != "" {
			width -= len(suffix) + 1
			self.font.DrawText(self.fb, oled.Width-len(suffix)*self.font.CharWidth, y, suffix, true)
		}
		self.font.DrawText(self.fb, 0, y, truncate(text, width), true)
		if i == l.Cursor() {
			self.fb.Invert(0, y, oled.Width, h)
		}
	}
}

func (self *UI) renderNetwork() {
	sys := self.state.System
	ip := sys.IP
	if self.state.QR && ip != "" {
		url := "http://" + ip + "/"
		if err := self.fb.QR(url, 0, ListTop, oled.Width, oled.Height-ListTop, qrcode.Medium); err != nil {
			self.g.Log.Errorf("network qr: %v", err)
			self.text(0, url)
		}
		return
	}
	if ip == "" {
		ip = self.config.MsgOffline
	}
	radio := "off"
	if sys.RadioEnabled {
		radio = "on"
	}
	self.text(0, "WiFi: "+radio)
	self.text(1, "IP: "+ip)
	self.text(3, "B1: Toggle WiFi")
	if sys.IP != "" {
		self.text(4, "B2: QR code")
	}
}

func (self *UI) renderPlayer(now time.Time) {
	st := &self.state
	p := st.Player
	switch {
	case p.Playing:
		self.text(0, "Playing")
	case p.Filename != "":
		self.text(0, "Paused")
	default:
		self.text(0, self.config.MsgIdle)
	}
	self.text(1, fmt.Sprintf("Vol: %d%%", st.System.Volume))
	if p.Duration > 0 {
		self.text(2, formatDuration(p.Position)+" / "+formatDuration(p.Duration))
	}
	if p.Filename != "" {
		self.text(3, st.Marquee.View())
	}
	if st.errorVisible(now) {
		self.text(4, "! "+st.Error)
	}
}

// text draws row in content area, clipped to screen width.
func (self *UI) text(row int, s string) {
	y := ListTop + row*self.font.LineHeight
	if y >= oled.Height {
		return
	}
	self.font.DrawText(self.fb, 0, y, truncate(s, self.font.Chars(oled.Width)), true)
}

func truncate(s string, chars int) string {
	if chars <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= chars {
		return s
	}
	return string(rs[:chars])
}

func formatDuration(d time.Duration) string {
	sec := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
