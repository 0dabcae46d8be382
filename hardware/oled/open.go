package oled

import (
	"io"
	"strconv"

	"github.com/juju/errors"
	"github.com/temoto/gpio-cdev-go"
	"github.com/temoto/oledpod/helpers"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

const DefaultSpiSpeed = 8 * physic.MegaHertz

type Config struct {
	SpiBus       string `hcl:"spi"`
	SpiMode      int    `hcl:"spi_mode"`
	SpiSpeed     string `hcl:"spi_speed"`
	PinChip      string `hcl:"pin_chip"`
	Pinmap       PinMap `hcl:"pinmap"`
	ColumnOffset *int   `hcl:"column_offset"`
	Font         string `hcl:"font"`

	testhw *testHardware
}

// Line offsets on PinChip, empty string means not connected.
type PinMap struct {
	DC  string `hcl:"dc"`
	RST string `hcl:"rst"`
	CS  string `hcl:"cs"`
	BL  string `hcl:"bl"`
}

// testHardware replaces SPI and GPIO in tests.
type testHardware struct {
	Tx    TxFunc
	Lines gpio.Lineser
	DC    gpio.LineSetFunc
	RST   gpio.LineSetFunc
	CS    gpio.LineSetFunc
	BL    gpio.LineSetFunc
}

type hardware struct {
	tx    TxFunc           // used
	lines gpio.Lineser     // used
	dc    gpio.LineSetFunc // command=0 data=1
	rst   gpio.LineSetFunc // optional
	cs    gpio.LineSetFunc // optional, spidev usually drives CE itself
	bl    gpio.LineSetFunc // optional

	spiPort  spi.PortCloser // only for resource cleanup
	gpioChip gpio.Chiper    // only for resource cleanup
}

// Converts config strings to useful hardware talking functions.
func (h *hardware) open(c *Config) error {
	if c.testhw != nil {
		t := c.testhw
		h.tx, h.lines = t.Tx, t.Lines
		h.dc, h.rst, h.cs, h.bl = t.DC, t.RST, t.CS, t.BL
		return nil
	}

	pins := []struct {
		name  string
		value string
		set   *gpio.LineSetFunc
	}{
		{"dc", c.Pinmap.DC, &h.dc},
		{"rst", c.Pinmap.RST, &h.rst},
		{"cs", c.Pinmap.CS, &h.cs},
		{"bl", c.Pinmap.BL, &h.bl},
	}
	if c.Pinmap.DC == "" {
		return errors.NotValidf("pinmap.dc is required")
	}
	offsets := make([]uint32, 0, len(pins))
	for _, p := range pins {
		if p.value == "" {
			continue
		}
		n, err := strconv.ParseUint(p.value, 10, 16)
		if err != nil {
			return errors.Annotatef(err, "pinmap.%s=%s must be line number", p.name, p.value)
		}
		offsets = append(offsets, uint32(n))
	}

	var err error
	if _, err = host.Init(); err != nil {
		return errors.Annotate(err, "periph/init")
	}
	h.spiPort, err = spireg.Open(c.SpiBus)
	if err != nil {
		return errors.Annotatef(err, "SPI Open bus=%s", c.SpiBus)
	}
	spiSpeed := DefaultSpiSpeed
	if c.SpiSpeed != "" {
		if err = spiSpeed.Set(c.SpiSpeed); err != nil {
			return errors.Annotate(err, "SPI speed parse")
		}
	}
	var spiConn spi.Conn
	spiConn, err = h.spiPort.Connect(spiSpeed, spi.Mode(c.SpiMode), 8)
	if err != nil {
		return errors.Annotate(err, "SPI Connect")
	}
	h.tx = spiConn.Tx

	h.gpioChip, err = gpio.Open(c.PinChip, "oled")
	if err != nil {
		return errors.Annotatef(err, "gpio open chip=%s", c.PinChip)
	}
	h.lines, err = h.gpioChip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, "oled", offsets...)
	if err != nil {
		return errors.Annotatef(err, "gpio OpenLines offsets=%v", offsets)
	}
	i := 0
	for _, p := range pins {
		if p.value == "" {
			continue
		}
		*p.set = h.lines.SetFunc(offsets[i])
		i++
	}
	return nil
}

func (h *hardware) Close() error {
	closers := []io.Closer{
		h.spiPort,
		h.lines,
		h.gpioChip,
	}
	errs := make([]error, len(closers))
	for i, c := range closers {
		if c != nil {
			errs[i] = c.Close()
		}
	}
	return helpers.FoldErrors(errs)
}
