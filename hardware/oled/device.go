package oled

import (
	"sync"
)

// Device is what UI loop needs from a display, SH1106 or simulator.
type Device interface {
	Init() error
	Transfer(fb *Framebuffer) error
	Close() error
}

var _ Device = &SH1106{}
var _ Device = &MockDevice{}

// MockDevice keeps copies of transferred frames.
type MockDevice struct {
	mu     sync.Mutex
	frames []Framebuffer
	fail   []error
	inited bool
	closed bool
	Limit  int // keep only last Limit frames, 0 = all
}

func NewMockDevice() *MockDevice { return &MockDevice{} }

func (self *MockDevice) Init() error {
	self.mu.Lock()
	self.inited = true
	self.mu.Unlock()
	return nil
}

// FailNext makes next len(errs) transfers return errs in order.
func (self *MockDevice) FailNext(errs ...error) {
	self.mu.Lock()
	self.fail = append(self.fail, errs...)
	self.mu.Unlock()
}

func (self *MockDevice) Transfer(fb *Framebuffer) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.fail) != 0 {
		err := self.fail[0]
		self.fail = self.fail[1:]
		if err != nil {
			return err
		}
	}
	self.frames = append(self.frames, *fb)
	if self.Limit > 0 && len(self.frames) > self.Limit {
		self.frames = self.frames[len(self.frames)-self.Limit:]
	}
	return nil
}

func (self *MockDevice) Close() error {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
	return nil
}

func (self *MockDevice) Frames() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.frames)
}

// Last returns copy of last transferred frame, nil if none.
func (self *MockDevice) Last() *Framebuffer {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.frames) == 0 {
		return nil
	}
	fb := self.frames[len(self.frames)-1]
	return &fb
}

func (self *MockDevice) State() (inited, closed bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.inited, self.closed
}
