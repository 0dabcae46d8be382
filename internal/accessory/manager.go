package accessory

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledpod/helpers"
	"github.com/temoto/oledpod/internal/mailbox"
	"github.com/temoto/oledpod/internal/shell"
	"github.com/temoto/oledpod/log2"
)

const (
	DefaultBluetoothctl   = "bluetoothctl"
	DefaultPoll           = 1 * time.Second
	DefaultCommandTimeout = 5 * time.Second
)

type Config struct {
	Bluetoothctl     string `hcl:"bluetoothctl"`
	PollMs           int    `hcl:"poll_ms"`
	CommandTimeoutMs int    `hcl:"command_timeout_ms"`
	Mailbox          int    `hcl:"mailbox"`
	ScanOnStart      bool   `hcl:"scan_on_start"`
}

type RequestKind uint8

const (
	RequestInvalid RequestKind = iota
	RequestConnect
	RequestDisconnect
	RequestStartScan
	RequestStopScan
)

func (k RequestKind) String() string {
	switch k {
	case RequestConnect:
		return "connect"
	case RequestDisconnect:
		return "disconnect"
	case RequestStartScan:
		return "start-scan"
	case RequestStopScan:
		return "stop-scan"
	}
	return fmt.Sprintf("RequestKind(%d)", uint8(k))
}

type Request struct {
	Kind    RequestKind
	Address Address
}

func Connect(a Address) Request    { return Request{Kind: RequestConnect, Address: a} }
func Disconnect(a Address) Request { return Request{Kind: RequestDisconnect, Address: a} }
func StartScan() Request           { return Request{Kind: RequestStartScan} }
func StopScan() Request            { return Request{Kind: RequestStopScan} }

func (r Request) String() string {
	switch r.Kind {
	case RequestConnect, RequestDisconnect:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Address)
	}
	return r.Kind.String()
}

// Status is full snapshot of known accessories, unnamed included.
type Status struct {
	Accessories []Accessory
	Scanning    bool
}

type Manager struct {
	Requests *mailbox.Box[Request]
	Updates  *mailbox.Box[Status]

	log     *log2.Log
	run     shell.Runner
	bin     string
	poll    time.Duration
	timeout time.Duration
	scanNow bool
	scan    shell.Process
	scanErr chan error
}

func NewManager(c Config, run shell.Runner, log *log2.Log) *Manager {
	self := &Manager{
		log:     log,
		run:     run,
		bin:     c.Bluetoothctl,
		poll:    helpers.IntMillisecondDefault(c.PollMs, DefaultPoll),
		timeout: helpers.IntMillisecondDefault(c.CommandTimeoutMs, DefaultCommandTimeout),
		scanNow: c.ScanOnStart,
	}
	if self.bin == "" {
		self.bin = DefaultBluetoothctl
	}
	self.Requests = mailbox.New[Request]("accessory.request", c.Mailbox, log)
	self.Updates = mailbox.New[Status]("accessory.status", c.Mailbox, log)
	return self
}

// Run blocks until a is stopped. Caller must a.Add(1) before.
func (self *Manager) Run(ctx context.Context, a *alive.Alive) {
	defer a.Done()
	defer self.StopScan()

	if err := self.Prepare(ctx); err != nil {
		self.log.Error(errors.Annotate(err, "accessory prepare"))
	}
	if self.scanNow {
		if err := self.StartScan(ctx); err != nil {
			self.log.Error(err)
		}
	}
	self.refresh(ctx)

	tmr := time.NewTicker(self.poll)
	defer tmr.Stop()
	stopch := a.StopChan()
	for {
		select {
		case <-stopch:
			return
		case r := <-self.Requests.Chan():
			if err := self.Handle(ctx, r); err != nil {
				self.log.Error(errors.Annotatef(err, "accessory request=%s", r))
			}
			self.refresh(ctx)
		case err := <-self.scanErr:
			self.log.Errorf("accessory scan child exited err=%v", err)
			self.scan, self.scanErr = nil, nil
		case <-tmr.C:
			self.refresh(ctx)
		}
	}
}

// Prepare registers pairing agent and makes adapter pairable.
func (self *Manager) Prepare(ctx context.Context) error {
	if _, err := self.output(ctx, "agent", "on"); err != nil {
		return err
	}
	_, err := self.output(ctx, "pairable", "on")
	return err
}

func (self *Manager) Handle(ctx context.Context, r Request) error {
	switch r.Kind {
	case RequestConnect:
		return self.Connect(ctx, r.Address)
	case RequestDisconnect:
		_, err := self.output(ctx, "disconnect", r.Address.String())
		return err
	case RequestStartScan:
		return self.StartScan(ctx)
	case RequestStopScan:
		self.StopScan()
		return nil
	}
	return errors.NotValidf("accessory request=%s", r)
}

// Connect trusts device first when needed.
func (self *Manager) Connect(ctx context.Context, addr Address) error {
	a := Accessory{Address: addr}
	out, err := self.output(ctx, "info", addr.String())
	if err != nil {
		return err
	}
	ParseInfo(out, &a)
	if !a.Trusted {
		if _, err = self.output(ctx, "trust", addr.String()); err != nil {
			return err
		}
	}
	_, err = self.output(ctx, "connect", addr.String())
	return err
}

func (self *Manager) Scanning() bool { return self.scan != nil }

func (self *Manager) StartScan(ctx context.Context) error {
	if self.scan != nil {
		return nil
	}
	if _, err := self.output(ctx, "discoverable", "on"); err != nil {
		return err
	}
	p, err := self.run.Start(self.bin, "scan", "on")
	if err != nil {
		return errors.Annotate(err, "accessory scan")
	}
	errch := make(chan error, 1)
	go func() { errch <- p.Wait() }()
	self.scan, self.scanErr = p, errch
	self.log.Debugf("accessory scan started")
	return nil
}

func (self *Manager) StopScan() {
	if self.scan == nil {
		return
	}
	if err := self.scan.Kill(); err != nil {
		self.log.Errorf("accessory scan kill err=%v", err)
	}
	<-self.scanErr
	self.scan, self.scanErr = nil, nil
	self.log.Debugf("accessory scan stopped")
}

// List returns all known devices with flags.
// Any command failure fails whole list.
func (self *Manager) List(ctx context.Context) ([]Accessory, error) {
	out, err := self.output(ctx, "devices")
	if err != nil {
		return nil, err
	}
	list := ParseDevices(out)
	for i := range list {
		info, err := self.output(ctx, "info", list[i].Address.String())
		if err != nil {
			return nil, err
		}
		ParseInfo(info, &list[i])
	}
	return list, nil
}

func (self *Manager) refresh(ctx context.Context) {
	list, err := self.List(ctx)
	if err != nil {
		self.log.Error(errors.Annotate(err, "accessory refresh"))
		return
	}
	self.Updates.TrySend(Status{Accessories: list, Scanning: self.Scanning()})
}

func (self *Manager) output(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, self.timeout)
	defer cancel()
	return self.run.Output(ctx, self.bin, args...)
}
