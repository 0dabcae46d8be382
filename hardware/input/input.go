// Package input turns raw button/joystick levels into per tick edges.
//
// Readers only report which controls are active right now.
// Poller keeps previous levels and derives just-pressed for buttons
// and just-switched for joystick, so edges exist exactly one poll.
package input

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/errors"
)

type Control uint8

const (
	ControlInvalid Control = iota
	Button1
	Button2
	Button3
	JoyUp
	JoyDown
	JoyLeft
	JoyRight
	JoyClick
	controlEnd
)

var Buttons = []Control{Button1, Button2, Button3}

// Priority order for joystick resolution.
var joystickOrder = []struct {
	c Control
	d Direction
}{
	{JoyUp, Up},
	{JoyDown, Down},
	{JoyLeft, Left},
	{JoyRight, Right},
	{JoyClick, Click},
}

var controlNames = map[Control]string{
	Button1:  "b1",
	Button2:  "b2",
	Button3:  "b3",
	JoyUp:    "up",
	JoyDown:  "down",
	JoyLeft:  "left",
	JoyRight: "right",
	JoyClick: "click",
}

func (c Control) String() string {
	if s, ok := controlNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Control(%d)", c)
}

func ParseControl(s string) (Control, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range controlNames {
		if name == s {
			return c, nil
		}
	}
	return ControlInvalid, errors.NotValidf("input control=%s", s)
}

func AllControls() []Control {
	cs := make([]Control, 0, controlEnd)
	for c := Button1; c < controlEnd; c++ {
		cs = append(cs, c)
	}
	return cs
}

type Direction uint8

const (
	Neutral Direction = iota
	Up
	Down
	Left
	Right
	Click
)

func (d Direction) String() string {
	switch d {
	case Neutral:
		return "neutral"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Click:
		return "click"
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// Levels maps control to active (pressed) state.
type Levels map[Control]bool

func (l Levels) Reset() {
	for c := range l {
		delete(l, c)
	}
}

func (l Levels) String() string {
	ss := make([]string, 0, len(l))
	for c, on := range l {
		if on {
			ss = append(ss, c.String())
		}
	}
	sort.Strings(ss)
	return "[" + strings.Join(ss, " ") + "]"
}

type Reader interface {
	// ReadLevels fills active controls, called once per tick from event loop.
	ReadLevels(Levels) error
	Close() error
}

type Edge struct {
	Held        bool
	JustPressed bool
}

type Snapshot struct {
	Buttons  map[Control]Edge
	Joystick Direction
	Switched bool // Joystick differs from previous poll
}

func (s Snapshot) Pressed(c Control) bool { return s.Buttons[c].JustPressed }
func (s Snapshot) Held(c Control) bool    { return s.Buttons[c].Held }

func (s Snapshot) SwitchedTo(d Direction) bool { return s.Switched && s.Joystick == d }

func (s Snapshot) String() string {
	b := strings.Builder{}
	for _, c := range Buttons {
		e := s.Buttons[c]
		fmt.Fprintf(&b, "%s:%t/%t ", c, e.Held, e.JustPressed)
	}
	fmt.Fprintf(&b, "joy:%s switched:%t", s.Joystick, s.Switched)
	return b.String()
}

// Poller is single sample, no debounce and no hold repeat.
type Poller struct {
	r      Reader
	levels Levels
	held   map[Control]bool
	joy    Direction
}

func NewPoller(r Reader) *Poller {
	return &Poller{
		r:      r,
		levels: make(Levels, controlEnd),
		held:   make(map[Control]bool, len(Buttons)),
	}
}

// Poll errors are hardware errors, caller should treat them as fatal.
func (self *Poller) Poll() (Snapshot, error) {
	self.levels.Reset()
	if err := self.r.ReadLevels(self.levels); err != nil {
		return Snapshot{}, errors.Annotate(err, "input read")
	}

	s := Snapshot{Buttons: make(map[Control]Edge, len(Buttons))}
	for _, c := range Buttons {
		now := self.levels[c]
		s.Buttons[c] = Edge{Held: now, JustPressed: now && !self.held[c]}
		self.held[c] = now
	}

	s.Joystick = ResolveJoystick(self.levels)
	s.Switched = s.Joystick != self.joy
	self.joy = s.Joystick
	return s, nil
}

func ResolveJoystick(l Levels) Direction {
	for _, x := range joystickOrder {
		if l[x.c] {
			return x.d
		}
	}
	return Neutral
}
