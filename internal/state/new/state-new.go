// Sorry, workaround to import cycles.
package state_new

import (
	"context"
	"testing"

	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/internal/shell"
	"github.com/temoto/oledpod/internal/state"
	"github.com/temoto/oledpod/log2"
)

func NewContext(log *log2.Log) (context.Context, *state.Global) {
	return state.NewContext(log)
}

// Mocks are stored in context, get them with GetMocks(ctx).
type Mocks struct {
	Display *oled.MockDevice
	Input   *input.MockReader
	Runner  *shell.MockRunner
}

const MockContextKey = "test/state-mocks"

func GetMocks(ctx context.Context) *Mocks { return ctx.Value(MockContextKey).(*Mocks) }

func NewTestContext(t testing.TB, confString string) (context.Context, *state.Global) {
	fs := state.NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)

	mocks := &Mocks{
		Display: oled.NewMockDevice(),
		Input:   input.NewMockReader(),
		Runner:  &shell.MockRunner{},
	}
	g.Hardware.Display.D = mocks.Display
	g.Hardware.Input.R = mocks.Input
	g.Runner = mocks.Runner
	g.MustInit(ctx, state.MustReadConfig(log, fs, "test-inline"))
	ctx = context.WithValue(ctx, MockContextKey, mocks)

	return ctx, g
}
