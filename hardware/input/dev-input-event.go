package input

import (
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/inputevent-go"
	"golang.org/x/sys/unix"
)

const (
	evKey     = 0x01       // EV_KEY
	eviocgrab = 0x40044590 // _IOW('E', 0x90, int)
)

// Key code to control, e.g. {"103" = "up", "28" = "click"}.
type KeyMap map[string]string

// DefaultKeyMap matches common USB keypads and keyboards.
var DefaultKeyMap = KeyMap{
	"2":   "b1",    // KEY_1
	"3":   "b2",    // KEY_2
	"4":   "b3",    // KEY_3
	"103": "up",    // KEY_UP
	"108": "down",  // KEY_DOWN
	"105": "left",  // KEY_LEFT
	"106": "right", // KEY_RIGHT
	"28":  "click", // KEY_ENTER
}

func (m KeyMap) parse() (map[uint16]Control, error) {
	result := make(map[uint16]Control, len(m))
	for code, name := range m {
		n, err := strconv.ParseUint(code, 10, 16)
		if err != nil {
			return nil, errors.Annotatef(err, "key code=%s", code)
		}
		c, err := ParseControl(name)
		if err != nil {
			return nil, err
		}
		result[uint16(n)] = c
	}
	return result, nil
}

// DevInputEventReader tracks key state from /dev/input/eventN in background goroutine.
// ReadLevels returns last known state, or error after device read failed.
type DevInputEventReader struct {
	f    io.ReadCloser
	keys map[uint16]Control

	mu    sync.Mutex
	state map[Control]bool
	err   error
	done  chan struct{}
}

var _ Reader = &DevInputEventReader{}

func NewDevInputEventReader(device string, keymap KeyMap, grab bool) (*DevInputEventReader, error) {
	if len(keymap) == 0 {
		keymap = DefaultKeyMap
	}
	keys, err := keymap.parse()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Annotatef(err, "input device=%s", device)
	}
	if grab {
		if err = unix.IoctlSetInt(int(f.Fd()), eviocgrab, 1); err != nil {
			_ = f.Close()
			return nil, errors.Annotatef(err, "input device=%s EVIOCGRAB", device)
		}
	}
	self := NewDevInputEventStream(f, keys)
	return self, nil
}

// NewDevInputEventStream starts reading events from r.
func NewDevInputEventStream(r io.ReadCloser, keys map[uint16]Control) *DevInputEventReader {
	self := &DevInputEventReader{
		f:     r,
		keys:  keys,
		state: make(map[Control]bool, len(keys)),
		done:  make(chan struct{}),
	}
	go self.run()
	return self
}

func (self *DevInputEventReader) run() {
	defer close(self.done)
	for {
		ie, err := inputevent.ReadOne(self.f)
		if err != nil {
			self.mu.Lock()
			self.err = err
			self.mu.Unlock()
			return
		}
		if ie.Type != evKey {
			continue
		}
		c, ok := self.keys[ie.Code]
		if !ok {
			continue
		}
		self.mu.Lock()
		self.state[c] = ie.Value != int32(inputevent.KeyStateUp)
		self.mu.Unlock()
	}
}

func (self *DevInputEventReader) ReadLevels(l Levels) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.err != nil {
		return errors.Annotate(self.err, "dev-input-event")
	}
	for c, on := range self.state {
		if on {
			l[c] = true
		}
	}
	return nil
}

func (self *DevInputEventReader) Close() error {
	err := self.f.Close()
	<-self.done
	return err
}
