package state

import (
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/hardware/termsim"
	"github.com/temoto/oledpod/helpers"
)

type hardware struct {
	Display struct {
		once
		D oled.Device
	}
	Font struct {
		once
		f *oled.Font
	}
	Input struct {
		once
		R input.Reader
	}
	termsim struct {
		once
		sim *termsim.Sim
	}
}

// Display returns nil device without error for driver=none.
func (g *Global) Display() (oled.Device, error) {
	x := &g.Hardware.Display // short alias
	_ = x.do(func() error {
		if x.D != nil { // state-new testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Display
		switch cfg.Driver {
		case DisplayDriverSH1106:
			d, err := oled.NewSH1106(&cfg.Config, g.Log.Named("sh1106"))
			if err != nil {
				return errors.Annotate(err, "display=sh1106")
			}
			x.D = d

		case DisplayDriverTermsim:
			sim, err := g.Termsim()
			if err != nil {
				return err
			}
			x.D = sim

		case DisplayDriverNone:
			return nil

		default:
			return errors.NotValidf("config: display.driver=%s", cfg.Driver)
		}
		return errors.Annotatef(x.D.Init(), "display=%s init", cfg.Driver)
	})
	return x.D, x.err
}

func (g *Global) Font() (*oled.Font, error) {
	x := &g.Hardware.Font // short alias
	_ = x.do(func() error {
		x.f, x.err = oled.LoadFont(g.Config.Hardware.Display.Font)
		return x.err
	})
	return x.f, x.err
}

func (g *Global) Input() (input.Reader, error) {
	x := &g.Hardware.Input // short alias
	_ = x.do(func() error {
		if x.R != nil { // state-new testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Input
		var r input.Reader
		var err error
		switch cfg.Driver {
		case InputDriverGPIO:
			r, err = input.NewGPIOReader(cfg.PinChip, cfg.Pinmap, cfg.ActiveHigh)
		case InputDriverEvdev:
			r, err = input.NewDevInputEventReader(cfg.Device, cfg.Keymap, cfg.Grab)
		case InputDriverTermsim:
			r, err = g.Termsim()
		default:
			err = errors.NotValidf("config: input.driver=%s", cfg.Driver)
		}
		if err != nil {
			return errors.Annotatef(err, "input=%s", cfg.Driver)
		}
		x.R = r
		return nil
	})
	return x.R, x.err
}

// Termsim is shared by display and input.
func (g *Global) Termsim() (*termsim.Sim, error) {
	x := &g.Hardware.termsim // short alias
	_ = x.do(func() error {
		x.sim, x.err = termsim.New(g.Config.Hardware.Termsim, g.Log.Named("termsim"))
		return x.err
	})
	return x.sim, x.err
}

// CloseHardware turns display off and releases lines.
func (g *Global) CloseHardware() error {
	errs := make([]error, 0, 3)
	hw := &g.Hardware
	if hw.Display.done() && hw.Display.D != nil {
		if _, shared := hw.Display.D.(*termsim.Sim); !shared {
			errs = append(errs, errors.Annotate(hw.Display.D.Close(), "display close"))
		}
	}
	if hw.Input.done() && hw.Input.R != nil {
		if _, shared := hw.Input.R.(*termsim.Sim); !shared {
			errs = append(errs, errors.Annotate(hw.Input.R.Close(), "input close"))
		}
	}
	if hw.termsim.done() && hw.termsim.sim != nil {
		errs = append(errs, hw.termsim.sim.Close())
	}
	return helpers.FoldErrors(errs)
}

func (g *Global) initDisplay() error {
	_, err := g.Display()
	return err
}

func (g *Global) initInput() error {
	_, err := g.Input()
	return err
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
