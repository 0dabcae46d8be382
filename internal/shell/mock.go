package shell

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockRunner expects Output/Start calls with full argument list:
//
//	m.On("Output", "rfkill", "list", "wifi").Return([]byte("..."), nil)
type MockRunner struct{ mock.Mock }

var _ Runner = &MockRunner{}

func (m *MockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	returns := m.Called(mockArgs(name, args)...)
	var out []byte
	if x := returns.Get(0); x != nil {
		out = x.([]byte)
	}
	return out, returns.Error(1)
}

func (m *MockRunner) Start(name string, args ...string) (Process, error) {
	returns := m.Called(mockArgs(name, args)...)
	var p Process
	if x := returns.Get(0); x != nil {
		p = x.(Process)
	}
	return p, returns.Error(1)
}

func mockArgs(name string, args []string) []interface{} {
	xs := make([]interface{}, 0, len(args)+1)
	xs = append(xs, name)
	for _, a := range args {
		xs = append(xs, a)
	}
	return xs
}

// MockProcess runs until Kill or Exit.
type MockProcess struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	killed bool
	err    error
}

func NewMockProcess() *MockProcess { return &MockProcess{done: make(chan struct{})} }

func (p *MockProcess) Exit(err error) {
	p.once.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *MockProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.Exit(nil)
	return nil
}

func (p *MockProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

func (p *MockProcess) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
