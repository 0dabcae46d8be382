package shell

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/oledpod/log2"
)

func TestOSOutput(t *testing.T) {
	t.Parallel()

	r := OS{Log: log2.NewTest(t, log2.LDebug)}
	ctx := context.Background()
	out, err := r.Output(ctx, "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = r.Output(ctx, "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stderr=oops")

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = r.Output(ctx, "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline")
}

func TestOSStartKill(t *testing.T) {
	t.Parallel()

	r := OS{Log: log2.NewTest(t, log2.LDebug)}
	p, err := r.Start("sleep", "5")
	require.NoError(t, err)
	require.NoError(t, p.Kill())
	assert.Error(t, p.Wait())

	_, err = r.Start("/nonexistent/binary")
	assert.Error(t, err)
}

func TestMockRunner(t *testing.T) {
	t.Parallel()

	m := &MockRunner{}
	m.On("Output", "pactl", "get-sink-volume", "@DEFAULT_SINK@").Return([]byte("42%"), nil)
	m.On("Output", "rfkill", "block", "wifi").Return(nil, fmt.Errorf("denied"))
	out, err := m.Output(context.Background(), "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	require.NoError(t, err)
	assert.Equal(t, "42%", string(out))
	_, err = m.Output(context.Background(), "rfkill", "block", "wifi")
	assert.EqualError(t, err, "denied")

	p := NewMockProcess()
	m.On("Start", "mpv", "x.mp3").Return(p, nil)
	proc, err := m.Start("mpv", "x.mp3")
	require.NoError(t, err)
	go func() { _ = proc.Kill() }()
	assert.NoError(t, proc.Wait())
	assert.True(t, p.Killed())
	m.AssertExpectations(t)
}
