// Package player runs mpv as child process and controls it over JSON IPC.
package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledpod/helpers"
	"github.com/temoto/oledpod/internal/mailbox"
	"github.com/temoto/oledpod/internal/shell"
	"github.com/temoto/oledpod/log2"
)

const (
	DefaultMpv    = "mpv"
	DefaultSocket = "/tmp/oledpod-mpv.sock"
	// mpv creates socket some time after start, dial errors are quiet until then
	DefaultStartGrace = 3 * time.Second
)

type Config struct {
	Mpv              string   `hcl:"mpv"`
	Args             []string `hcl:"args"`
	Socket           string   `hcl:"socket"`
	Mailbox          int      `hcl:"mailbox"`
	NetworkTimeoutMs int      `hcl:"network_timeout_ms"`
	StartGraceMs     int      `hcl:"start_grace_ms"`
}

type RequestKind uint8

const (
	RequestInvalid RequestKind = iota
	RequestPlay
	RequestGetStatus
)

type Request struct {
	Kind RequestKind
	Path string
}

func Play(path string) Request { return Request{Kind: RequestPlay, Path: path} }
func GetStatus() Request       { return Request{Kind: RequestGetStatus} }

func (r Request) String() string {
	switch r.Kind {
	case RequestPlay:
		return fmt.Sprintf("play(%s)", r.Path)
	case RequestGetStatus:
		return "get-status"
	}
	return fmt.Sprintf("RequestKind(%d)", uint8(r.Kind))
}

// Event is Status or Error.
type Event interface {
	playerEvent()
}

type Status struct {
	Playing  bool
	Position time.Duration
	Duration time.Duration
	Filename string
}

type Error struct {
	Message string
}

func (Status) playerEvent() {}
func (Error) playerEvent()  {}

func (s Status) String() string {
	return fmt.Sprintf("playing=%t pos=%s dur=%s file=%s", s.Playing, s.Position, s.Duration, s.Filename)
}
func (e Error) Error() string { return e.Message }

type Manager struct {
	Requests *mailbox.Box[Request]
	Events   *mailbox.Box[Event]

	log      *log2.Log
	run      shell.Runner
	c        Config
	timeout  time.Duration
	grace    time.Duration
	proc     shell.Process
	exited   chan error
	started  time.Time
	ipc      *IPC
	lastPath string
}

func NewManager(c Config, run shell.Runner, log *log2.Log) *Manager {
	if c.Mpv == "" {
		c.Mpv = DefaultMpv
	}
	if c.Socket == "" {
		c.Socket = DefaultSocket
	}
	self := &Manager{
		log:     log,
		run:     run,
		c:       c,
		timeout: helpers.IntMillisecondDefault(c.NetworkTimeoutMs, DefaultNetworkTimeout),
		grace:   helpers.IntMillisecondDefault(c.StartGraceMs, DefaultStartGrace),
	}
	self.Requests = mailbox.New[Request]("player.request", c.Mailbox, log)
	self.Events = mailbox.New[Event]("player.event", c.Mailbox, log)
	return self
}

// Run blocks until a is stopped, then kills mpv. Caller must a.Add(1) before.
func (self *Manager) Run(ctx context.Context, a *alive.Alive) {
	defer a.Done()
	defer self.Stop()

	stopch := a.StopChan()
	for {
		select {
		case <-stopch:
			return
		case r := <-self.Requests.Chan():
			self.Handle(ctx, r)
		case err := <-self.exited:
			self.onExit(err)
		}
	}
}

func (self *Manager) Handle(ctx context.Context, r Request) {
	var err error
	switch r.Kind {
	case RequestPlay:
		err = self.Toggle(ctx, r.Path)
	case RequestGetStatus:
		var st Status
		var ok bool
		if st, ok, err = self.Status(ctx); ok {
			self.Events.TrySend(st)
		}
	default:
		err = errors.NotValidf("player request=%s", r)
	}
	if err != nil {
		self.log.Error(errors.Annotatef(err, "player request=%s", r))
		self.Events.TrySend(Error{Message: errors.Cause(err).Error()})
	}
}

func (self *Manager) Running() bool {
	self.reap()
	return self.proc != nil
}

// Toggle starts mpv with path when idle, otherwise cycles pause of running one.
func (self *Manager) Toggle(ctx context.Context, path string) error {
	if !self.Running() {
		return self.start(path)
	}
	ipc, err := self.connect(ctx)
	if err != nil {
		return err
	}
	if ipc == nil {
		return errors.Errorf("player is starting")
	}
	if _, err = ipc.Command(ctx, "cycle", "pause"); err != nil {
		self.disconnect()
		return err
	}
	return nil
}

// Status returns ok=false when there is nothing to report yet.
// Unavailable properties are zero.
func (self *Manager) Status(ctx context.Context) (Status, bool, error) {
	var st Status
	if !self.Running() {
		return st, false, nil
	}
	ipc, err := self.connect(ctx)
	if err != nil || ipc == nil {
		return st, false, err
	}

	var pause bool
	var pos, dur float64
	props := []struct {
		name string
		v    interface{}
	}{
		{"pause", &pause},
		{"time-pos", &pos},
		{"duration", &dur},
		{"filename", &st.Filename},
	}
	for _, p := range props {
		if err = ipc.GetProperty(ctx, p.name, p.v); err != nil && !IsUnavailable(err) {
			self.disconnect()
			return st, false, err
		}
		if p.name == "pause" && err == nil {
			st.Playing = !pause
		}
	}
	st.Position = seconds(pos)
	st.Duration = seconds(dur)
	return st, true, nil
}

// Stop kills mpv and removes socket.
func (self *Manager) Stop() {
	self.disconnect()
	if self.proc != nil {
		if err := self.proc.Kill(); err != nil {
			self.log.Errorf("player kill err=%v", err)
		}
		<-self.exited
		self.proc, self.exited = nil, nil
	}
	self.removeSocket()
}

func (self *Manager) start(path string) error {
	self.removeSocket()
	args := make([]string, 0, len(self.c.Args)+4)
	args = append(args, "--no-video", "--audio-buffer=0.5", "--input-ipc-server="+self.c.Socket)
	args = append(args, self.c.Args...)
	args = append(args, path)
	p, err := self.run.Start(self.c.Mpv, args...)
	if err != nil {
		return errors.Annotate(err, "player start")
	}
	exited := make(chan error, 1)
	go func() { exited <- p.Wait() }()
	self.proc, self.exited = p, exited
	self.started = time.Now()
	self.lastPath = path
	self.log.Infof("player started file=%s", filepath.Base(path))
	return nil
}

func (self *Manager) reap() {
	if self.proc == nil {
		return
	}
	select {
	case err := <-self.exited:
		self.onExit(err)
	default:
	}
}

func (self *Manager) onExit(err error) {
	self.log.Infof("player exited file=%s err=%v", filepath.Base(self.lastPath), err)
	self.disconnect()
	self.proc, self.exited = nil, nil
	self.Events.TrySend(Status{})
}

// connect returns nil IPC without error while mpv is still creating socket.
func (self *Manager) connect(ctx context.Context) (*IPC, error) {
	if self.ipc != nil {
		return self.ipc, nil
	}
	ipc, err := DialIPC(ctx, self.c.Socket, self.timeout, self.log)
	if err != nil {
		if time.Since(self.started) < self.grace {
			self.log.Debugf("player %v", err)
			return nil, nil
		}
		return nil, err
	}
	self.ipc = ipc
	return ipc, nil
}

func (self *Manager) disconnect() {
	if self.ipc != nil {
		_ = self.ipc.Close()
		self.ipc = nil
	}
}

func (self *Manager) removeSocket() {
	if err := os.Remove(self.c.Socket); err != nil && !os.IsNotExist(err) {
		self.log.Errorf("player remove socket=%s err=%v", self.c.Socket, err)
	}
}

func seconds(f float64) time.Duration {
	if f <= 0 {
		return 0
	}
	return time.Duration(f) * time.Second
}
