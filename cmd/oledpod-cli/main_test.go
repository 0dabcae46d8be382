package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/temoto/oledpod/internal/state"
	"github.com/temoto/oledpod/log2"
)

func TestExecutorLogsErrorVerbatim(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	lg := log2.NewWriter(buf, log2.LAll)
	lg.SetFlags(0)
	ctx, _ := state.NewContext(lg)

	saved := commands
	defer func() { commands = saved }()
	commands = append(commands[:len(commands):len(commands)], command{"fail", "", "", func(context.Context, []string) error {
		return errors.Errorf("play path=%s", "/music/100%.mp3")
	}})

	exec := newExecutor(ctx)
	exec("fail")
	assert.Contains(t, buf.String(), "play path=/music/100%.mp3")
	assert.NotContains(t, buf.String(), "%!")

	buf.Reset()
	exec("nope")
	assert.Contains(t, buf.String(), "unknown command=nope")
	buf.Reset()
	exec("   ")
	assert.Empty(t, buf.String())
}

func TestArgOr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "on", argOr(nil, "on"))
	assert.Equal(t, "off", argOr([]string{"off", "x"}, "on"))
}
