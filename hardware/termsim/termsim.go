// Package termsim runs UI in terminal without OLED hat.
// Framebuffer is drawn with half block characters, two pixel rows per cell.
// Keyboard replaces joystick and buttons.
package termsim

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/juju/errors"
	"github.com/mattn/go-runewidth"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/log2"
)

// Terminals do not report key release, press is held for this long.
const DefaultHold = 150 * time.Millisecond

const help = "arrows:joy enter:click 1 2 3/q:buttons"

type Config struct {
	HoldMs int `hcl:"hold_ms"`
}

type Sim struct {
	log    *log2.Log
	screen tcell.Screen
	hold   time.Duration
	done   chan struct{}

	mu      sync.Mutex
	pressed map[input.Control]time.Time
	last    string
	now     func() time.Time
}

var _ oled.Device = &Sim{}
var _ input.Reader = &Sim{}

func New(c Config, log *log2.Log) (*Sim, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Annotate(err, "termsim")
	}
	return NewScreen(screen, c, log)
}

// NewScreen takes uninitialized screen, tests pass tcell.NewSimulationScreen.
func NewScreen(screen tcell.Screen, c Config, log *log2.Log) (*Sim, error) {
	if err := screen.Init(); err != nil {
		return nil, errors.Annotate(err, "termsim screen init")
	}
	self := &Sim{
		log:     log,
		screen:  screen,
		hold:    time.Duration(c.HoldMs) * time.Millisecond,
		done:    make(chan struct{}),
		pressed: make(map[input.Control]time.Time),
		now:     time.Now,
	}
	if self.hold <= 0 {
		self.hold = DefaultHold
	}
	screen.HideCursor()
	screen.Clear()
	go self.run()
	return self, nil
}

func (self *Sim) Init() error { return nil }

// Transfer draws 128x64 pixels as 128x32 cells plus status line.
func (self *Sim) Transfer(fb *oled.Framebuffer) error {
	for cy := 0; cy < oled.Height/2; cy++ {
		for x := 0; x < oled.Width; x++ {
			self.screen.SetContent(x, cy, halfBlock(fb.Pixel(x, cy*2), fb.Pixel(x, cy*2+1)), nil, tcell.StyleDefault)
		}
	}
	self.mu.Lock()
	status := help
	if self.last != "" {
		status = fmt.Sprintf("%s | %s", help, self.last)
	}
	self.mu.Unlock()
	self.drawStatus(oled.Height/2, status)
	self.screen.Show()
	return nil
}

func (self *Sim) ReadLevels(l input.Levels) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	now := self.now()
	for c, at := range self.pressed {
		if now.Sub(at) < self.hold {
			l[c] = true
		} else {
			delete(self.pressed, c)
		}
	}
	return nil
}

func (self *Sim) Close() error {
	self.screen.Fini()
	<-self.done
	return nil
}

// Press is what key handler does, exported for tests and bench tools.
func (self *Sim) Press(c input.Control) {
	self.mu.Lock()
	self.pressed[c] = self.now()
	self.last = c.String()
	self.mu.Unlock()
}

func (self *Sim) SetClock(now func() time.Time) {
	self.mu.Lock()
	self.now = now
	self.mu.Unlock()
}

func (self *Sim) run() {
	defer close(self.done)
	for {
		ev := self.screen.PollEvent()
		switch e := ev.(type) {
		case nil:
			return // Fini
		case *tcell.EventKey:
			if c, ok := keyControl(e); ok {
				self.log.Debugf("termsim key=%s control=%s", e.Name(), c)
				self.Press(c)
			}
		case *tcell.EventResize:
			self.screen.Sync()
		}
	}
}

func keyControl(e *tcell.EventKey) (input.Control, bool) {
	switch e.Key() {
	case tcell.KeyUp:
		return input.JoyUp, true
	case tcell.KeyDown:
		return input.JoyDown, true
	case tcell.KeyLeft:
		return input.JoyLeft, true
	case tcell.KeyRight:
		return input.JoyRight, true
	case tcell.KeyEnter:
		return input.JoyClick, true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return input.Button3, true
	case tcell.KeyRune:
		switch e.Rune() {
		case '1':
			return input.Button1, true
		case '2':
			return input.Button2, true
		case '3', 'q':
			return input.Button3, true
		case ' ':
			return input.JoyClick, true
		}
	}
	return input.ControlInvalid, false
}

func halfBlock(top, bottom bool) rune {
	switch {
	case top && bottom:
		return '█'
	case top:
		return '▀'
	case bottom:
		return '▄'
	}
	return ' '
}

func (self *Sim) drawStatus(y int, s string) {
	w, _ := self.screen.Size()
	if w <= 0 {
		return
	}
	s = runewidth.Truncate(s, w, "…")
	x := 0
	for _, r := range s {
		self.screen.SetContent(x, y, r, nil, tcell.StyleDefault.Reverse(true))
		x += runewidth.RuneWidth(r)
	}
	for ; x < w; x++ {
		self.screen.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}
