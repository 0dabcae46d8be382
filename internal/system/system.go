// Package system toggles OS level things: wifi radio through rfkill, sink volume through pactl.
package system

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledpod/helpers"
	"github.com/temoto/oledpod/internal/mailbox"
	"github.com/temoto/oledpod/internal/shell"
	"github.com/temoto/oledpod/log2"
)

const (
	DefaultRfkill         = "rfkill"
	DefaultPactl          = "pactl"
	DefaultCommandTimeout = 3 * time.Second
	DefaultSink           = "@DEFAULT_SINK@"
)

type Config struct {
	Rfkill           string `hcl:"rfkill"`
	Pactl            string `hcl:"pactl"`
	Sink             string `hcl:"sink"`
	CommandTimeoutMs int    `hcl:"command_timeout_ms"`
	Mailbox          int    `hcl:"mailbox"`
}

type RequestKind uint8

const (
	RequestInvalid RequestKind = iota
	RequestRefresh
	RequestToggleRadio
	RequestVolume
)

type Request struct {
	Kind  RequestKind
	Delta int // percent, RequestVolume only
}

func Refresh() Request               { return Request{Kind: RequestRefresh} }
func ToggleRadio() Request           { return Request{Kind: RequestToggleRadio} }
func ChangeVolume(delta int) Request { return Request{Kind: RequestVolume, Delta: delta} }

func (r Request) String() string {
	switch r.Kind {
	case RequestRefresh:
		return "refresh"
	case RequestToggleRadio:
		return "toggle-radio"
	case RequestVolume:
		return fmt.Sprintf("volume(%+d%%)", r.Delta)
	}
	return fmt.Sprintf("RequestKind(%d)", uint8(r.Kind))
}

type Status struct {
	RadioEnabled bool
	Volume       int
	IP           string // empty when offline
}

func (s Status) String() string {
	return fmt.Sprintf("radio=%t volume=%d%% ip=%s", s.RadioEnabled, s.Volume, s.IP)
}

type Manager struct {
	Requests *mailbox.Box[Request]
	Updates  *mailbox.Box[Status]

	log     *log2.Log
	run     shell.Runner
	c       Config
	timeout time.Duration
	last    Status

	XXX_addrs func() ([]net.Addr, error)
}

func NewManager(c Config, run shell.Runner, log *log2.Log) *Manager {
	if c.Rfkill == "" {
		c.Rfkill = DefaultRfkill
	}
	if c.Pactl == "" {
		c.Pactl = DefaultPactl
	}
	if c.Sink == "" {
		c.Sink = DefaultSink
	}
	self := &Manager{
		log:     log,
		run:     run,
		c:       c,
		timeout: helpers.IntMillisecondDefault(c.CommandTimeoutMs, DefaultCommandTimeout),
		// pactl fallback until first successful read
		last: Status{RadioEnabled: true, Volume: 50},

		XXX_addrs: net.InterfaceAddrs,
	}
	self.Requests = mailbox.New[Request]("system.request", c.Mailbox, log)
	self.Updates = mailbox.New[Status]("system.status", c.Mailbox, log)
	return self
}

// Run blocks until a is stopped. Caller must a.Add(1) before.
func (self *Manager) Run(ctx context.Context, a *alive.Alive) {
	defer a.Done()

	self.Handle(ctx, Refresh())
	stopch := a.StopChan()
	for {
		select {
		case <-stopch:
			return
		case r := <-self.Requests.Chan():
			self.Handle(ctx, r)
		}
	}
}

// Handle executes request, refreshes and sends status. Errors are logged, status keeps last known values.
func (self *Manager) Handle(ctx context.Context, r Request) Status {
	var err error
	switch r.Kind {
	case RequestRefresh:
	case RequestToggleRadio:
		err = self.SetRadio(ctx, !self.last.RadioEnabled)
	case RequestVolume:
		err = self.AdjustVolume(ctx, r.Delta)
	default:
		err = errors.NotValidf("system request=%s", r)
	}
	if err != nil {
		self.log.Error(errors.Annotatef(err, "system request=%s", r))
	}
	st := self.Refresh(ctx)
	self.Updates.TrySend(st)
	return st
}

func (self *Manager) Refresh(ctx context.Context) Status {
	if enabled, err := self.Radio(ctx); err != nil {
		self.log.Error(err)
	} else {
		self.last.RadioEnabled = enabled
	}
	if vol, err := self.Volume(ctx); err != nil {
		self.log.Error(err)
	} else {
		self.last.Volume = vol
	}
	self.last.IP = self.LocalIP()
	return self.last
}

func (self *Manager) Radio(ctx context.Context) (bool, error) {
	out, err := self.output(ctx, self.c.Rfkill, "list", "wifi")
	if err != nil {
		return false, err
	}
	return ParseRfkill(out)
}

func (self *Manager) SetRadio(ctx context.Context, enabled bool) error {
	verb := "block"
	if enabled {
		verb = "unblock"
	}
	_, err := self.output(ctx, self.c.Rfkill, verb, "wifi")
	return err
}

func (self *Manager) Volume(ctx context.Context) (int, error) {
	out, err := self.output(ctx, self.c.Pactl, "get-sink-volume", self.c.Sink)
	if err != nil {
		return 0, err
	}
	return ParseVolume(out)
}

func (self *Manager) AdjustVolume(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := self.output(ctx, self.c.Pactl, "set-sink-volume", self.c.Sink, fmt.Sprintf("%+d%%", delta))
	return err
}

// LocalIP returns first non-loopback IPv4 address or empty string.
func (self *Manager) LocalIP() string {
	addrs, err := self.XXX_addrs()
	if err != nil {
		self.log.Errorf("system interface addrs err=%v", err)
		return ""
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}

func (self *Manager) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, self.timeout)
	defer cancel()
	return self.run.Output(ctx, name, args...)
}

// ParseRfkill returns radio enabled from `rfkill list wifi`:
//
//	0: phy0: Wireless LAN
//		Soft blocked: no
//		Hard blocked: no
//
// No wifi devices listed means enabled.
func ParseRfkill(b []byte) (bool, error) {
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "Soft blocked:"); ok {
			switch strings.TrimSpace(value) {
			case "yes":
				return false, nil
			case "no":
				return true, nil
			}
			return false, errors.NotValidf("rfkill line=%q", line)
		}
	}
	return true, nil
}

// ParseVolume takes first percent from `pactl get-sink-volume` first line:
//
//	Volume: front-left: 32768 /  50% / -18.06 dB,   front-right: 32768 /  50% / -18.06 dB
func ParseVolume(b []byte) (int, error) {
	line, _, _ := bytes.Cut(b, []byte{'\n'})
	s := string(line)
	pos := strings.IndexByte(s, '%')
	if pos < 0 {
		return 0, errors.NotValidf("pactl volume=%q", s)
	}
	start := strings.LastIndexByte(s[:pos], ' ') + 1
	v, err := strconv.Atoi(s[start:pos])
	if err != nil {
		return 0, errors.Annotatef(err, "pactl volume=%q", s)
	}
	return v, nil
}
