package system

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/oledpod/internal/shell"
	"github.com/temoto/oledpod/log2"
)

func TestParseRfkill(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		expect  bool
		wantErr bool
	}{
		{"unblocked", "0: phy0: Wireless LAN\n\tSoft blocked: no\n\tHard blocked: no\n", true, false},
		{"blocked", "0: phy0: Wireless LAN\n\tSoft blocked: yes\n\tHard blocked: no\n", false, false},
		{"empty", "", true, false},
		{"garbage", "\tSoft blocked: maybe\n", false, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			enabled, err := ParseRfkill([]byte(c.input))
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, enabled)
		})
	}
}

func TestParseVolume(t *testing.T) {
	t.Parallel()

	v, err := ParseVolume([]byte("Volume: front-left: 32768 /  50% / -18.06 dB,   front-right: 32768 /  49% / -18.06 dB\n        balance 0.00\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, v)

	v, err = ParseVolume([]byte("Volume: mono: 65536 / 100% / 0.00 dB"))
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	_, err = ParseVolume([]byte("Connection failure: Connection refused\n"))
	assert.Error(t, err)
	_, err = ParseVolume([]byte("Volume: x%"))
	assert.Error(t, err)
}

func newTestManager(t testing.TB) (*Manager, *shell.MockRunner) {
	m := &shell.MockRunner{}
	mgr := NewManager(Config{}, m, log2.NewTest(t, log2.LDebug))
	mgr.XXX_addrs = func() ([]net.Addr, error) {
		return []net.Addr{
			&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.CIDRMask(8, 32)},
			&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
			&net.IPNet{IP: net.IPv4(192, 168, 1, 42), Mask: net.CIDRMask(24, 32)},
		}, nil
	}
	return mgr, m
}

func TestHandle(t *testing.T) {
	t.Parallel()

	mgr, m := newTestManager(t)
	ctx := context.Background()
	m.On("Output", "rfkill", "list", "wifi").Return([]byte("\tSoft blocked: no\n"), nil).Once()
	m.On("Output", "pactl", "get-sink-volume", "@DEFAULT_SINK@").Return([]byte("Volume: mono: 1 / 30% / 0 dB\n"), nil).Once()
	st := mgr.Handle(ctx, Refresh())
	assert.Equal(t, Status{RadioEnabled: true, Volume: 30, IP: "192.168.1.42"}, st)

	m.On("Output", "rfkill", "block", "wifi").Return(nil, nil).Once()
	m.On("Output", "rfkill", "list", "wifi").Return([]byte("\tSoft blocked: yes\n"), nil).Once()
	m.On("Output", "pactl", "get-sink-volume", "@DEFAULT_SINK@").Return(nil, fmt.Errorf("no pulse")).Once()
	st = mgr.Handle(ctx, ToggleRadio())
	assert.False(t, st.RadioEnabled)
	assert.Equal(t, 30, st.Volume, "failed read keeps last value")

	m.On("Output", "pactl", "set-sink-volume", "@DEFAULT_SINK@", "-5%").Return(nil, nil).Once()
	m.On("Output", "rfkill", "list", "wifi").Return([]byte("\tSoft blocked: yes\n"), nil).Once()
	m.On("Output", "pactl", "get-sink-volume", "@DEFAULT_SINK@").Return([]byte("Volume: mono: 1 / 25% / 0 dB\n"), nil).Once()
	st = mgr.Handle(ctx, ChangeVolume(-5))
	assert.Equal(t, 25, st.Volume)

	assert.Equal(t, 3, mgr.Updates.Len())
	m.AssertExpectations(t)
}

func TestLocalIPOffline(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager(t)
	mgr.XXX_addrs = func() ([]net.Addr, error) {
		return []net.Addr{&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.CIDRMask(8, 32)}}, nil
	}
	assert.Equal(t, "", mgr.LocalIP())
	mgr.XXX_addrs = func() ([]net.Addr, error) { return nil, fmt.Errorf("netlink") }
	assert.Equal(t, "", mgr.LocalIP())
}
