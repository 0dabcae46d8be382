package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/hardware/termsim"
	"github.com/temoto/oledpod/helpers"
	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/library"
	"github.com/temoto/oledpod/internal/player"
	"github.com/temoto/oledpod/internal/system"
	"github.com/temoto/oledpod/log2"
)

const (
	DisplayDriverSH1106  = "sh1106"
	DisplayDriverTermsim = "termsim"
	DisplayDriverNone    = "none"

	InputDriverGPIO    = "gpio"
	InputDriverEvdev   = "evdev"
	InputDriverTermsim = "termsim"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hardware struct {
		Display struct {
			Driver      string `hcl:"driver"`
			oled.Config `hcl:",squash"`
		} `hcl:"display"`
		Input struct {
			Driver     string       `hcl:"driver"`
			PinChip    string       `hcl:"pin_chip"`
			ActiveHigh bool         `hcl:"active_high"`
			Pinmap     input.PinMap `hcl:"pinmap"`
			Device     string       `hcl:"device"`
			Grab       bool         `hcl:"grab"`
			Keymap     input.KeyMap `hcl:"keymap"`
		} `hcl:"input"`
		Termsim termsim.Config `hcl:"termsim"`
	} `hcl:"hardware"`

	Library library.Config `hcl:"library"`

	UI UIConfig `hcl:"ui"`

	Accessory accessory.Config `hcl:"accessory"`
	Player    player.Config    `hcl:"player"`
	System    system.Config    `hcl:"system"`

	_copy_guard sync.Mutex //nolint:unused
}

// UIConfig zero values are replaced with defaults by ui.Init.
type UIConfig struct {
	TickMs          int `hcl:"tick_ms"`
	StatusEvery     int `hcl:"status_every"`
	SystemEvery     int `hcl:"system_every"`
	TransferFailMax int `hcl:"transfer_fail_max"`
	VolumeStep      int `hcl:"volume_step"`
	ErrorShowMs     int `hcl:"error_show_ms"`

	MsgNoFiles       string `hcl:"msg_no_files"`
	MsgNoAccessories string `hcl:"msg_no_accessories"`
	MsgOffline       string `hcl:"msg_offline"`
	MsgIdle          string `hcl:"msg_idle"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// Validate checks values that would otherwise fail late, on first use of hardware.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	switch c.Hardware.Display.Driver {
	case DisplayDriverSH1106, DisplayDriverTermsim, DisplayDriverNone:
	default:
		errs = append(errs, errors.NotValidf("config: hardware.display.driver=%q (valid: sh1106, termsim, none)", c.Hardware.Display.Driver))
	}
	switch c.Hardware.Input.Driver {
	case InputDriverGPIO, InputDriverEvdev, InputDriverTermsim:
	default:
		errs = append(errs, errors.NotValidf("config: hardware.input.driver=%q (valid: gpio, evdev, termsim)", c.Hardware.Input.Driver))
	}
	if _, err := oled.LoadFont(c.Hardware.Display.Font); err != nil {
		errs = append(errs, errors.Annotate(err, "config: hardware.display.font"))
	}
	if c.UI.TickMs < 0 || c.UI.StatusEvery < 0 || c.UI.SystemEvery < 0 || c.UI.TransferFailMax < 0 {
		errs = append(errs, errors.NotValidf("config: ui negative value"))
	}
	return helpers.FoldErrors(errs)
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	c.Hardware.Display.Driver = DisplayDriverSH1106
	c.Hardware.Input.Driver = InputDriverGPIO
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) == 0 {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
