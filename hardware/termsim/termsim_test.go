package termsim

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/log2"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSim(t *testing.T) (*Sim, tcell.SimulationScreen, *fakeClock) {
	screen := tcell.NewSimulationScreen("UTF-8")
	sim, err := NewScreen(screen, Config{HoldMs: 100}, log2.NewTest(t, log2.LDebug))
	require.NoError(t, err)
	screen.SetSize(oled.Width, oled.Height/2+1)
	clock := &fakeClock{now: time.Unix(1600000000, 0)}
	sim.SetClock(clock.Now)
	t.Cleanup(func() { _ = sim.Close() })
	return sim, screen, clock
}

func TestKeysHold(t *testing.T) {
	sim, screen, clock := newTestSim(t)

	screen.InjectKey(tcell.KeyUp, 0, 0)
	screen.InjectKey(tcell.KeyRune, '2', 0)
	l := make(input.Levels)
	require.Eventually(t, func() bool {
		l.Reset()
		_ = sim.ReadLevels(l)
		return l[input.JoyUp] && l[input.Button2]
	}, time.Second, 5*time.Millisecond)
	assert.False(t, l[input.JoyDown])

	clock.Add(99 * time.Millisecond)
	l.Reset()
	require.NoError(t, sim.ReadLevels(l))
	assert.True(t, l[input.JoyUp], "still within hold window")

	clock.Add(time.Millisecond)
	l.Reset()
	require.NoError(t, sim.ReadLevels(l))
	assert.Equal(t, "[]", l.String())
}

func TestKeyControl(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key    tcell.Key
		r      rune
		expect input.Control
	}{
		{tcell.KeyDown, 0, input.JoyDown},
		{tcell.KeyLeft, 0, input.JoyLeft},
		{tcell.KeyRight, 0, input.JoyRight},
		{tcell.KeyEnter, 0, input.JoyClick},
		{tcell.KeyEscape, 0, input.Button3},
		{tcell.KeyRune, '1', input.Button1},
		{tcell.KeyRune, 'q', input.Button3},
		{tcell.KeyRune, ' ', input.JoyClick},
		{tcell.KeyRune, 'x', input.ControlInvalid},
	}
	for _, c := range cases {
		got, _ := keyControl(tcell.NewEventKey(c.key, c.r, tcell.ModNone))
		assert.Equal(t, c.expect, got, "key=%v rune=%q", c.key, c.r)
	}
}

func TestTransfer(t *testing.T) {
	sim, screen, _ := newTestSim(t)

	fb := oled.NewFramebuffer()
	fb.SetPixel(0, 0, true)
	fb.SetPixel(1, 1, true)
	fb.SetPixel(2, 0, true)
	fb.SetPixel(2, 1, true)
	sim.Press(input.Button1)
	require.NoError(t, sim.Transfer(fb))

	cells, w, _ := screen.GetContents()
	require.Equal(t, oled.Width, w)
	cell := func(x, y int) rune { return cells[y*w+x].Runes[0] }
	assert.Equal(t, '▀', cell(0, 0))
	assert.Equal(t, '▄', cell(1, 0))
	assert.Equal(t, '█', cell(2, 0))
	assert.Equal(t, ' ', cell(3, 0))

	var status strings.Builder
	for x := 0; x < w; x++ {
		status.WriteRune(cell(x, oled.Height/2))
	}
	assert.Contains(t, status.String(), "| b1")
}
