package input

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
)

// Line offsets on chip, empty string means control is not wired.
type PinMap struct {
	B1    string `hcl:"b1"`
	B2    string `hcl:"b2"`
	B3    string `hcl:"b3"`
	Up    string `hcl:"up"`
	Down  string `hcl:"down"`
	Left  string `hcl:"left"`
	Right string `hcl:"right"`
	Click string `hcl:"click"`
}

func (p *PinMap) each(f func(Control, string) error) error {
	pairs := []struct {
		c Control
		s string
	}{
		{Button1, p.B1}, {Button2, p.B2}, {Button3, p.B3},
		{JoyUp, p.Up}, {JoyDown, p.Down}, {JoyLeft, p.Left}, {JoyRight, p.Right}, {JoyClick, p.Click},
	}
	for _, x := range pairs {
		if x.s == "" {
			continue
		}
		if err := f(x.c, x.s); err != nil {
			return err
		}
	}
	return nil
}

// GPIOReader samples all controls with one line handle read.
// Buttons pull line to ground, so raw 0 is active unless activeHigh.
type GPIOReader struct {
	chip       gpio.Chiper
	lines      gpio.Lineser
	index      map[Control]int // position in HandleData.Values
	activeHigh bool
}

var _ Reader = &GPIOReader{}

func NewGPIOReader(chipPath string, pinmap PinMap, activeHigh bool) (*GPIOReader, error) {
	chip, err := gpio.Open(chipPath, "oledpod-input")
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", chipPath)
	}
	self, err := NewGPIOReaderChip(chip, pinmap, activeHigh)
	if err != nil {
		_ = chip.Close()
		return nil, err
	}
	return self, nil
}

func NewGPIOReaderChip(chip gpio.Chiper, pinmap PinMap, activeHigh bool) (*GPIOReader, error) {
	self := &GPIOReader{
		chip:       chip,
		index:      make(map[Control]int, controlEnd),
		activeHigh: activeHigh,
	}
	offsets := make([]uint32, 0, controlEnd)
	err := pinmap.each(func(c Control, s string) error {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return errors.Annotatef(err, "input pinmap.%s=%s must be line number", c, s)
		}
		self.index[c] = len(offsets)
		offsets = append(offsets, uint32(n))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, errors.NotValidf("input pinmap is empty")
	}
	self.lines, err = chip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, "oledpod-input", offsets...)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio OpenLines offsets=%v", offsets)
	}
	return self, nil
}

func (self *GPIOReader) ReadLevels(l Levels) error {
	data, err := self.lines.Read()
	if err != nil {
		return errors.Annotate(err, "gpio read")
	}
	for c, i := range self.index {
		raw := data.Values[i] != 0
		l[c] = raw == self.activeHigh
	}
	return nil
}

func (self *GPIOReader) Close() error {
	var err error
	if self.lines != nil {
		err = self.lines.Close()
	}
	if self.chip != nil {
		if cerr := self.chip.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
