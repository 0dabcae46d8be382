// Package oled drives 128x64 monochrome SH1106 panel over SPI.
// Data/command select, reset and backlight are plain GPIO lines.
package oled

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/oledpod/log2"
)

const (
	CommandDisplayOff byte = 0xAE
	CommandDisplayOn  byte = 0xAF
	CommandPageAddr   byte = 0xB0
	CommandColumnLow  byte = 0x00
	CommandColumnHigh byte = 0x10

	DefaultColumnOffset = 2 // SH1106 RAM is 132 wide, 128 visible columns start at 2
)

// Power-on sequence, display stays off until CommandDisplayOn.
var initSequence = []byte{
	CommandDisplayOff,
	0x02, 0x10, // column address
	0x40,       // start line 0
	0x81, 0xA0, // contrast control, segment remap normal
	0xC0,       // COM scan normal
	0xA6,       // normal (not inverted)
	0xA8, 0x3F, // multiplex ratio 1/64
	0xD3, 0x00, // display offset 0
	0xd5, 0x80, // clock divide
	0xD9, 0xF1, // pre-charge period
	0xDA, 0x12, // COM pins hardware configuration
	0xDB, 0x40, // VCOMH deselect level
	0x20, 0x02, // page addressing mode
	0xA4, // resume to RAM content
	0xA6,
}

const (
	resetPulse = 100 * time.Millisecond
	settleTime = 100 * time.Millisecond
)

type TxFunc func(send, recv []byte) error

type SH1106 struct {
	log    *log2.Log
	hw     hardware
	column byte

	XXX_sleep func(time.Duration) // tests replace real sleep
}

func NewSH1106(c *Config, log *log2.Log) (*SH1106, error) {
	self := &SH1106{
		log:       log,
		column:    DefaultColumnOffset,
		XXX_sleep: time.Sleep,
	}
	if c.ColumnOffset != nil {
		if *c.ColumnOffset < 0 || *c.ColumnOffset > 0x7f {
			return nil, errors.NotValidf("column_offset=%d", *c.ColumnOffset)
		}
		self.column = byte(*c.ColumnOffset)
	}
	if err := self.hw.open(c); err != nil {
		_ = self.hw.Close()
		return nil, errors.Annotate(err, "oled open")
	}
	return self, nil
}

// Init performs hardware reset and power-on command sequence.
func (self *SH1106) Init() error {
	if self.hw.bl != nil {
		self.hw.bl(1)
		if err := self.hw.lines.Flush(); err != nil {
			return errors.Annotate(err, "backlight")
		}
	}
	if self.hw.rst != nil {
		for _, v := range []byte{1, 0, 1} {
			self.hw.rst(v)
			if err := self.hw.lines.Flush(); err != nil {
				return errors.Annotate(err, "reset")
			}
			self.XXX_sleep(resetPulse)
		}
	}
	if err := self.Command(initSequence...); err != nil {
		return errors.Annotate(err, "init sequence")
	}
	self.XXX_sleep(settleTime)
	if err := self.Command(CommandDisplayOn); err != nil {
		return errors.Annotate(err, "display on")
	}
	self.log.Debugf("sh1106 init complete column=%d", self.column)
	return nil
}

// Transfer sends whole framebuffer page by page.
// First error aborts the frame, caller retries whole Transfer later.
func (self *SH1106) Transfer(fb *Framebuffer) error {
	for p := 0; p < Pages; p++ {
		err := self.Command(
			CommandPageAddr+byte(p),
			CommandColumnLow|self.column&0x0f,
			CommandColumnHigh|self.column>>4,
		)
		if err != nil {
			return errors.Annotatef(err, "page=%d address", p)
		}
		if err = self.Data(fb.Page(p)); err != nil {
			return errors.Annotatef(err, "page=%d data", p)
		}
	}
	return nil
}

func (self *SH1106) Command(bs ...byte) error { return self.send(0, bs) }
func (self *SH1106) Data(bs []byte) error     { return self.send(1, bs) }

func (self *SH1106) send(dc byte, bs []byte) error {
	if self.hw.dc != nil {
		self.hw.dc(dc)
	}
	if self.hw.cs != nil {
		self.hw.cs(0)
	}
	if self.hw.lines != nil {
		if err := self.hw.lines.Flush(); err != nil {
			return errors.Annotate(err, "gpio")
		}
	}
	err := self.hw.tx(bs, nil)
	if self.hw.cs != nil {
		self.hw.cs(1)
		if ferr := self.hw.lines.Flush(); err == nil && ferr != nil {
			err = errors.Annotate(ferr, "gpio")
		}
	}
	return errors.Annotate(err, "spi")
}

// Close turns panel off and releases SPI port and GPIO lines.
func (self *SH1106) Close() error {
	err := self.Command(CommandDisplayOff)
	if err != nil {
		self.log.Errorf("sh1106 display off err=%v", err)
	}
	return self.hw.Close()
}
