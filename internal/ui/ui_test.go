package ui_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/library"
	"github.com/temoto/oledpod/internal/nav"
	"github.com/temoto/oledpod/internal/player"
	"github.com/temoto/oledpod/internal/state"
	state_new "github.com/temoto/oledpod/internal/state/new"
	"github.com/temoto/oledpod/internal/system"
	"github.com/temoto/oledpod/internal/ui"
)

type tenv struct {
	ctx   context.Context
	t     testing.TB
	g     *state.Global
	ui    *ui.UI
	mocks *state_new.Mocks
}

func newEnv(t testing.TB, conf string, tracks int) *tenv {
	ctx, g := state_new.NewTestContext(t, conf)
	ts := make([]library.Track, tracks)
	for i := range ts {
		name := fmt.Sprintf("track%02d.mp3", i)
		ts[i] = library.Track{Path: "/music/" + name, Name: name}
	}
	g.SetLibrary(library.New(ts))
	env := &tenv{ctx: ctx, t: t, g: g, ui: &ui.UI{}, mocks: state_new.GetMocks(ctx)}
	require.NoError(t, env.ui.Init(ctx))
	return env
}

// tick runs one frame with given controls held.
func (env *tenv) tick(cs ...input.Control) {
	env.t.Helper()
	env.mocks.Input.Set(cs...)
	running, err := env.ui.Tick(time.Now())
	require.NoError(env.t, err)
	require.True(env.t, running)
}

// press is one frame held and one released.
func (env *tenv) press(c input.Control) {
	env.t.Helper()
	env.tick(c)
	env.tick()
}

func (env *tenv) playerRequests() []player.Request {
	rs := []player.Request{}
	env.g.Player().Requests.Drain(func(r player.Request) {
		if r.Kind != player.RequestGetStatus {
			rs = append(rs, r)
		}
	})
	return rs
}

func (env *tenv) accessoryRequests() []accessory.Request {
	rs := []accessory.Request{}
	env.g.Accessory().Requests.Drain(func(r accessory.Request) { rs = append(rs, r) })
	return rs
}

func (env *tenv) systemRequests() []system.Request {
	rs := []system.Request{}
	env.g.System().Requests.Drain(func(r system.Request) {
		if r.Kind != system.RequestRefresh {
			rs = append(rs, r)
		}
	})
	return rs
}

func litPixels(fb *oled.Framebuffer, top int) int {
	n := 0
	for y := top; y < oled.Height; y++ {
		for x := 0; x < oled.Width; x++ {
			if fb.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func TestTabsCycle(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 3)
	assert.Equal(t, nav.TabFiles, env.ui.State().Tab)
	for _, expect := range []nav.Tab{nav.TabNetwork, nav.TabAccessories, nav.TabPlayer, nav.TabFiles} {
		env.press(input.JoyRight)
		assert.Equal(t, expect, env.ui.State().Tab)
	}
	env.press(input.JoyLeft)
	assert.Equal(t, nav.TabPlayer, env.ui.State().Tab)

	// held joystick is one switch
	env.tick(input.JoyRight)
	env.tick(input.JoyRight)
	env.tick(input.JoyRight)
	assert.Equal(t, nav.TabFiles, env.ui.State().Tab)
}

func TestFilesPlay(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 10)
	for i := 0; i < 9; i++ {
		env.press(input.JoyDown)
	}
	st := env.ui.State()
	assert.Equal(t, 9, st.Files.Cursor())
	visible := st.Files.Visible()
	require.True(t, visible > 1 && visible < 10, "visible=%d", visible)
	assert.Equal(t, 10-visible, st.Files.Scroll())

	// highlighted band on last visible row only
	fb := env.mocks.Display.Last()
	require.NotNil(t, fb)
	font, err := env.g.Font()
	require.NoError(t, err)
	h := font.LineHeight
	assert.False(t, fb.Pixel(oled.Width-1, ui.ListTop))
	assert.True(t, fb.Pixel(oled.Width-1, ui.ListTop+(visible-1)*h))

	env.accessoryRequests()
	env.press(input.Button1)
	assert.Equal(t, []player.Request{player.Play("/music/track09.mp3")}, env.playerRequests())
	assert.Equal(t, []accessory.Request{accessory.StopScan()}, env.accessoryRequests())
	assert.Equal(t, "/music/track09.mp3", env.ui.State().LastPath)

	// held button is one press
	env.tick(input.Button1)
	env.tick(input.Button1)
	env.tick()
	assert.Len(t, env.playerRequests(), 1)
}

func TestFilesEmpty(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 0)
	env.press(input.JoyDown)
	env.press(input.Button1)
	assert.Len(t, env.playerRequests(), 0)
	assert.NotZero(t, litPixels(env.mocks.Display.Last(), ui.ListTop), "no files message")
}

func TestAccessories(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 0)
	speaker := accessory.Accessory{Address: accessory.Address{0, 0x11, 0x22, 0x33, 0x44, 0x55}, Name: "Speaker", Connected: true}
	unnamed := accessory.Accessory{Address: accessory.Address{0xaa, 0xbb, 0xcc, 0, 0, 1}}
	phones := accessory.Accessory{Address: accessory.Address{0xaa, 0xbb, 0xcc, 0, 0, 2}, Name: "Phones", Paired: true}
	env.g.Accessory().Updates.TrySend(accessory.Status{Accessories: []accessory.Accessory{speaker, unnamed, phones}})
	env.press(input.JoyRight)
	env.press(input.JoyRight)
	require.Equal(t, nav.TabAccessories, env.ui.State().Tab)
	st := env.ui.State()
	assert.Equal(t, []accessory.Accessory{speaker, phones}, st.Devices)
	assert.Equal(t, 2, st.Accessories.Count())

	env.press(input.Button1)
	env.press(input.JoyDown)
	env.press(input.Button1)
	env.press(input.Button2)
	env.press(input.Button2)
	assert.Equal(t, []accessory.Request{
		accessory.Disconnect(speaker.Address),
		accessory.Connect(phones.Address),
		accessory.StartScan(),
		accessory.StopScan(),
	}, env.accessoryRequests())

	// list shrinks, cursor follows
	env.g.Accessory().Updates.TrySend(accessory.Status{Accessories: []accessory.Accessory{speaker}, Scanning: true})
	env.tick()
	st = env.ui.State()
	assert.Equal(t, 0, st.Accessories.Cursor())
	assert.Equal(t, 1, st.Accessories.Count())
	assert.True(t, st.Scanning)
}

func TestNetwork(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 0)
	env.g.System().Updates.TrySend(system.Status{RadioEnabled: true, Volume: 40, IP: "192.168.1.10"})
	env.press(input.JoyRight)
	require.Equal(t, nav.TabNetwork, env.ui.State().Tab)
	textPixels := litPixels(env.mocks.Display.Last(), ui.ListTop)
	font, err := env.g.Font()
	require.NoError(t, err)
	hintTop := ui.ListTop + 3*font.LineHeight
	assert.NotZero(t, litPixels(env.mocks.Display.Last(), hintTop), "button hints")

	env.press(input.Button2)
	assert.True(t, env.ui.State().QR)
	qrPixels := litPixels(env.mocks.Display.Last(), ui.ListTop)
	assert.Greater(t, qrPixels, textPixels)

	env.press(input.Button1)
	assert.Equal(t, []system.Request{system.ToggleRadio()}, env.systemRequests())
}

func TestPlayer(t *testing.T) {
	t.Parallel()

	env := newEnv(t, `ui { volume_step = 7 }`, 1)
	env.press(input.JoyLeft)
	require.Equal(t, nav.TabPlayer, env.ui.State().Tab)

	// nothing played yet
	env.press(input.Button1)
	assert.Len(t, env.playerRequests(), 0)

	env.press(input.JoyUp)
	env.press(input.JoyDown)
	assert.Equal(t, []system.Request{system.ChangeVolume(+7), system.ChangeVolume(-7)}, env.systemRequests())

	name := "A very long file name that does not fit.mp3"
	env.g.Player().Events.TrySend(player.Status{Playing: true, Position: 65 * time.Second, Duration: 200 * time.Second, Filename: name})
	env.tick()
	st := env.ui.State()
	assert.True(t, st.Player.Playing)
	assert.Equal(t, name, st.Marquee.Text())
	for i := 0; i < nav.MarqueeEvery; i++ {
		env.tick()
	}
	st = env.ui.State()
	assert.Equal(t, 1, st.Marquee.Offset())

	env.g.Player().Events.TrySend(player.Error{Message: "exec: mpv not found"})
	env.tick()
	assert.Equal(t, "exec: mpv not found", env.ui.State().Error)
}

func TestStatusSchedule(t *testing.T) {
	t.Parallel()

	env := newEnv(t, `ui { status_every = 3 system_every = 5 }`, 0)
	for i := 0; i < 10; i++ {
		env.tick()
	}
	status, refresh := 0, 0
	env.g.Player().Requests.Drain(func(r player.Request) {
		if r.Kind == player.RequestGetStatus {
			status++
		}
	})
	env.g.System().Requests.Drain(func(r system.Request) {
		if r.Kind == system.RequestRefresh {
			refresh++
		}
	})
	assert.Equal(t, 4, status)  // 0 3 6 9
	assert.Equal(t, 2, refresh) // 0 5
}

func TestExitButton(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 0)
	env.tick()
	frames := env.mocks.Display.Frames()
	env.mocks.Input.Set(input.Button3)
	running, err := env.ui.Tick(time.Now())
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, frames, env.mocks.Display.Frames(), "exit tick must not transfer")
}

func TestTransferFail(t *testing.T) {
	t.Parallel()

	env := newEnv(t, `ui { transfer_fail_max = 3 }`, 0)
	spi := errors.New("spi tx")
	env.mocks.Display.FailNext(spi, spi, nil, spi, spi)
	for i := 0; i < 5; i++ {
		env.tick()
	}
	assert.Equal(t, 1, env.mocks.Display.Frames())
	env.tick()
	assert.Equal(t, 2, env.mocks.Display.Frames())

	env.mocks.Display.FailNext(spi, spi, spi)
	env.tick()
	env.tick()
	_, err := env.ui.Tick(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spi tx")
}

func TestInputError(t *testing.T) {
	t.Parallel()

	env := newEnv(t, "", 0)
	env.mocks.Input.SetError(errors.New("gpio read"))
	running, err := env.ui.Tick(time.Now())
	assert.False(t, running)
	require.Error(t, err)
}

func (env *tenv) runLoop() (<-chan struct{}, <-chan error) {
	ticks := make(chan struct{}, 1)
	env.ui.XXX_testHook = func(ui.State) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}
	done := make(chan error, 1)
	go func() { done <- env.ui.Loop(env.ctx) }()
	return ticks, done
}

func waitTicks(t testing.TB, ticks <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatalf("tick=%d timeout", i)
		}
	}
}

func TestLoopExit(t *testing.T) {
	t.Parallel()

	env := newEnv(t, `ui { tick_ms = 1 }`, 2)
	ticks, done := env.runLoop()
	waitTicks(t, ticks, 3)
	env.mocks.Input.Set(input.Button3)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not exit")
	}
	assert.GreaterOrEqual(t, env.mocks.Display.Frames(), 3)
	select {
	case <-env.g.Alive.StopChan():
	default:
		t.Fatal("exit button must stop collaborators")
	}
	assert.True(t, env.g.StopWait(time.Second))
}

func TestLoopStop(t *testing.T) {
	t.Parallel()

	env := newEnv(t, `ui { tick_ms = 1 }`, 0)
	ticks, done := env.runLoop()
	waitTicks(t, ticks, 1)
	assert.True(t, env.g.StopWait(time.Second))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
