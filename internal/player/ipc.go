package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/oledpod/log2"
)

const DefaultNetworkTimeout = 2 * time.Second

const errorSuccess = "success"

// CommandError is non-success response from mpv, connection stays usable.
type CommandError struct {
	Command []interface{}
	Message string
}

func (e CommandError) Error() string {
	return fmt.Sprintf("mpv command=%v error=%s", e.Command, e.Message)
}

// IsUnavailable is true for properties mpv has no value for yet, e.g. time-pos while loading.
func IsUnavailable(err error) bool {
	ce, ok := errors.Cause(err).(CommandError)
	return ok && ce.Message == "property unavailable"
}

type request struct {
	Command   []interface{} `json:"command"`
	RequestID uint64        `json:"request_id"`
}

type response struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	RequestID *uint64         `json:"request_id"`
	Event     string          `json:"event"`
}

// IPC speaks mpv JSON protocol, one object per line, over unix socket.
// Not safe for concurrent use.
type IPC struct {
	log     *log2.Log
	conn    net.Conn
	r       *bufio.Reader
	lastID  uint64
	timeout time.Duration
}

func DialIPC(ctx context.Context, path string, timeout time.Duration, log *log2.Log) (*IPC, error) {
	if timeout <= 0 {
		timeout = DefaultNetworkTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, errors.Annotatef(err, "mpv dial socket=%s", path)
	}
	return NewIPC(conn, timeout, log), nil
}

func NewIPC(conn net.Conn, timeout time.Duration, log *log2.Log) *IPC {
	return &IPC{
		log:     log,
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: timeout,
	}
}

func (self *IPC) Close() error { return self.conn.Close() }

// Command sends request and waits for response with same request_id.
// Async event lines and stale responses are skipped.
func (self *IPC) Command(ctx context.Context, args ...interface{}) (json.RawMessage, error) {
	deadline := time.Now().Add(self.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := self.conn.SetDeadline(deadline); err != nil {
		return nil, errors.Annotate(err, "mpv deadline")
	}

	self.lastID++
	id := self.lastID
	b, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, errors.Annotatef(err, "mpv encode command=%v", args)
	}
	b = append(b, '\n')
	if _, err = self.conn.Write(b); err != nil {
		return nil, errors.Annotatef(err, "mpv send command=%v", args)
	}

	for {
		line, err := self.r.ReadBytes('\n')
		if err != nil {
			return nil, errors.Annotatef(err, "mpv receive command=%v", args)
		}
		var resp response
		if err = json.Unmarshal(line, &resp); err != nil {
			self.log.Debugf("mpv skip invalid line=%q err=%v", line, err)
			continue
		}
		if resp.Event != "" {
			continue
		}
		if resp.RequestID == nil || *resp.RequestID != id {
			continue
		}
		if resp.Error != errorSuccess {
			return nil, CommandError{Command: args, Message: resp.Error}
		}
		return resp.Data, nil
	}
}

func (self *IPC) GetProperty(ctx context.Context, name string, v interface{}) error {
	data, err := self.Command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return errors.Annotatef(json.Unmarshal(data, v), "mpv property=%s data=%s", name, data)
}
