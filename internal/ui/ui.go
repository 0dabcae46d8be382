package ui

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/hardware/oled"
	"github.com/temoto/oledpod/helpers"
	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/library"
	"github.com/temoto/oledpod/internal/nav"
	"github.com/temoto/oledpod/internal/player"
	"github.com/temoto/oledpod/internal/state"
	"github.com/temoto/oledpod/internal/system"
)

const (
	DefaultTick            = 50 * time.Millisecond
	DefaultStatusEvery     = 20
	DefaultSystemEvery     = 20
	DefaultTransferFailMax = 5
	DefaultVolumeStep      = 5
	DefaultErrorShow       = 3 * time.Second

	MsgNoFiles       = "No files"
	MsgNoAccessories = "No devices"
	MsgOffline       = "offline"
	MsgIdle          = "Stopped"
)

// Geometry, in pixels.
const (
	ListTop = 10
)

type UI struct {
	config *state.UIConfig
	g      *state.Global
	state  State

	display   oled.Device // nil with display driver=none
	fb        *oled.Framebuffer
	font      *oled.Font
	input     *input.Poller
	accessory *accessory.Manager
	player    *player.Manager
	system    *system.Manager
	library   *library.Library

	tick          time.Duration
	errorShow     time.Duration
	ticks         uint64
	transferFails int

	XXX_testHook func(State)
}

func (self *UI) Init(ctx context.Context) error {
	self.g = state.GetGlobal(ctx)
	self.config = &self.g.Config.UI
	if self.config.StatusEvery == 0 {
		self.config.StatusEvery = DefaultStatusEvery
	}
	if self.config.SystemEvery == 0 {
		self.config.SystemEvery = DefaultSystemEvery
	}
	if self.config.TransferFailMax == 0 {
		self.config.TransferFailMax = DefaultTransferFailMax
	}
	if self.config.VolumeStep == 0 {
		self.config.VolumeStep = DefaultVolumeStep
	}
	if self.config.MsgNoFiles == "" {
		self.config.MsgNoFiles = MsgNoFiles
	}
	if self.config.MsgNoAccessories == "" {
		self.config.MsgNoAccessories = MsgNoAccessories
	}
	if self.config.MsgOffline == "" {
		self.config.MsgOffline = MsgOffline
	}
	if self.config.MsgIdle == "" {
		self.config.MsgIdle = MsgIdle
	}
	self.tick = helpers.IntMillisecondDefault(self.config.TickMs, DefaultTick)
	self.errorShow = helpers.IntMillisecondDefault(self.config.ErrorShowMs, DefaultErrorShow)

	var err error
	if self.display, err = self.g.Display(); err != nil {
		return errors.Annotate(err, "ui display")
	}
	if self.font, err = self.g.Font(); err != nil {
		return errors.Annotate(err, "ui font")
	}
	in, err := self.g.Input()
	if err != nil {
		return errors.Annotate(err, "ui input")
	}
	self.input = input.NewPoller(in)
	self.fb = oled.NewFramebuffer()

	// empty library is not fatal, Files tab says so
	if self.library, err = self.g.Library(); err != nil {
		self.g.Log.Error(errors.Annotate(err, "ui library"))
		self.library = library.New(nil)
	}
	self.g.Log.Debugf("library dir=%s tracks=%d", self.library.Dir(), self.library.Len())

	self.accessory = self.g.Accessory()
	self.player = self.g.Player()
	self.system = self.g.System()

	rows := (oled.Height - ListTop) / self.font.LineHeight
	self.state = newState(self.library.Len(), rows, self.font.Chars(oled.Width))
	self.state.Scanning = self.g.Config.Accessory.ScanOnStart
	return nil
}

func (self *UI) State() State { return self.state }

// Loop runs ticks until exit button, g.Alive stop or fatal error.
// Collaborators are stopped on return, caller waits for them.
func (self *UI) Loop(ctx context.Context) error {
	if !self.g.Alive.Add(1) {
		return nil
	}
	defer self.g.Alive.Done()
	defer self.g.Stop()
	stopch := self.g.Alive.StopChan()
	for {
		start := time.Now()
		running, err := self.Tick(start)
		if err != nil {
			return err
		}
		if self.XXX_testHook != nil {
			self.XXX_testHook(self.state)
		}
		if !running {
			self.g.Log.Debugf("ui loop end")
			return nil
		}

		// flat sleep, late ticks are not compensated
		wait := self.tick - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-stopch:
			self.g.Log.Debugf("ui loop stopping because g.Alive")
			return nil
		case <-time.After(wait):
		}
	}
}

// Tick is one frame: clear, drain, poll, handle, send, render, transfer.
// running=false means exit button was pressed.
func (self *UI) Tick(now time.Time) (running bool, err error) {
	self.fb.Clear(false)
	self.drain(now)

	snap, err := self.input.Poll()
	if err != nil {
		return false, err
	}
	if snap.Pressed(input.Button3) {
		self.g.Log.Infof("exit button")
		return false, nil
	}

	self.handle(snap)
	self.schedule()
	self.state.Marquee.Tick()
	self.render(now)
	if err = self.transfer(); err != nil {
		return false, err
	}
	self.ticks++
	return true, nil
}

// Framebuffer is drawn by last Tick.
func (self *UI) Framebuffer() *oled.Framebuffer { return self.fb }

func (self *UI) drain(now time.Time) {
	self.accessory.Updates.Drain(func(s accessory.Status) {
		self.state.setAccessories(s)
	})
	self.player.Events.Drain(func(e player.Event) {
		switch x := e.(type) {
		case player.Status:
			self.state.setPlayer(x)
		case player.Error:
			self.g.Log.Errorf("player: %s", x.Message)
			self.state.Error = x.Message
			self.state.ErrorUntil = now.Add(self.errorShow)
		}
	})
	self.system.Updates.Drain(func(s system.Status) {
		self.state.System = s
	})
}

func (self *UI) handle(snap input.Snapshot) {
	st := &self.state
	switch {
	case snap.SwitchedTo(input.Left):
		st.Tab = st.Tab.Prev()
		return
	case snap.SwitchedTo(input.Right):
		st.Tab = st.Tab.Next()
		return
	}

	switch st.Tab {
	case nav.TabFiles:
		st.Files.Move(upDown(snap))
		if snap.Pressed(input.Button1) {
			if t, ok := self.library.Get(st.Files.Cursor()); ok {
				self.accessory.Requests.TrySend(accessory.StopScan())
				self.player.Requests.TrySend(player.Play(t.Path))
				st.LastPath = t.Path
				st.Scanning = false
			}
		}

	case nav.TabNetwork:
		if snap.Pressed(input.Button1) {
			self.system.Requests.TrySend(system.ToggleRadio())
		}
		if snap.Pressed(input.Button2) {
			st.QR = !st.QR
		}

	case nav.TabAccessories:
		st.Accessories.Move(upDown(snap))
		if snap.Pressed(input.Button1) {
			if a, ok := st.selectedAccessory(); ok {
				if a.Connected {
					self.accessory.Requests.TrySend(accessory.Disconnect(a.Address))
				} else {
					self.accessory.Requests.TrySend(accessory.Connect(a.Address))
				}
			}
		}
		if snap.Pressed(input.Button2) {
			if st.Scanning {
				self.accessory.Requests.TrySend(accessory.StopScan())
			} else {
				self.accessory.Requests.TrySend(accessory.StartScan())
			}
			st.Scanning = !st.Scanning
		}

	case nav.TabPlayer:
		if d := upDown(snap); d != 0 {
			self.system.Requests.TrySend(system.ChangeVolume(-d * self.config.VolumeStep))
		}
		if snap.Pressed(input.Button1) && st.LastPath != "" {
			self.player.Requests.TrySend(player.Play(st.LastPath))
		}
	}
}

// schedule sends periodic status requests.
func (self *UI) schedule() {
	if self.ticks%uint64(self.config.StatusEvery) == 0 {
		self.player.Requests.TrySend(player.GetStatus())
	}
	if self.ticks%uint64(self.config.SystemEvery) == 0 {
		self.system.Requests.TrySend(system.Refresh())
	}
}

// transfer errors are retried next tick with whole frame.
func (self *UI) transfer() error {
	if self.display == nil {
		return nil
	}
	err := self.display.Transfer(self.fb)
	if err == nil {
		self.transferFails = 0
		return nil
	}
	self.transferFails++
	if self.transferFails >= self.config.TransferFailMax {
		return errors.Annotatef(err, "display transfer failed %d times", self.transferFails)
	}
	self.g.Log.Errorf("display transfer fail=%d err=%v", self.transferFails, err)
	return nil
}

// upDown returns list delta for joystick edge, Up is towards list start.
func upDown(snap input.Snapshot) int {
	switch {
	case snap.SwitchedTo(input.Up):
		return -1
	case snap.SwitchedTo(input.Down):
		return +1
	}
	return 0
}
