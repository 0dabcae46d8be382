// Package shell runs external tools (bluetoothctl, mpv, rfkill, pactl).
// Collaborators depend on Runner so tests can replace processes with MockRunner.
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/oledpod/log2"
)

type Process interface {
	Kill() error
	// Wait blocks until process exits, call exactly once.
	Wait() error
}

type Runner interface {
	// Output runs command to completion and returns stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start runs long lived child, e.g. `bluetoothctl scan on` or mpv.
	Start(name string, args ...string) (Process, error)
}

type OS struct {
	Log *log2.Log
}

var _ Runner = OS{}

func (self OS) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	self.Log.Debugf("exec %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return out, errors.Annotatef(err, "exec %s %v stderr=%s", name, args, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (self OS) Start(name string, args ...string) (Process, error) {
	self.Log.Debugf("start %s %s", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Annotatef(err, "start %s %v", name, args)
	}
	return osProcess{cmd}, nil
}

type osProcess struct{ cmd *exec.Cmd }

func (p osProcess) Kill() error { return p.cmd.Process.Kill() }
func (p osProcess) Wait() error { return p.cmd.Wait() }
