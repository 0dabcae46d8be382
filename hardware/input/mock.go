package input

import "sync"

// MockReader reports whatever controls were last Set.
type MockReader struct {
	mu     sync.Mutex
	active Levels
	err    error
	Reads  int
}

var _ Reader = &MockReader{}

func NewMockReader() *MockReader { return &MockReader{active: make(Levels)} }

// Set replaces active controls.
func (self *MockReader) Set(cs ...Control) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.active = make(Levels, len(cs))
	for _, c := range cs {
		self.active[c] = true
	}
}

func (self *MockReader) SetError(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.err = err
}

func (self *MockReader) ReadLevels(l Levels) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.Reads++
	if self.err != nil {
		return self.err
	}
	for c, on := range self.active {
		l[c] = on
	}
	return nil
}

func (self *MockReader) Close() error { return nil }
