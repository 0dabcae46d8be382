package state

import (
	"context"

	"github.com/temoto/alive/v2"
	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/library"
	"github.com/temoto/oledpod/internal/player"
	"github.com/temoto/oledpod/internal/system"
)

// Collaborators are created lazily, UI talks to them only through mailboxes.
type services struct {
	accessory struct {
		once
		m *accessory.Manager
	}
	player struct {
		once
		m *player.Manager
	}
	system struct {
		once
		m *system.Manager
	}
	library struct {
		once
		l *library.Library
	}
}

func (g *Global) Accessory() *accessory.Manager {
	x := &g.services.accessory
	_ = x.do(func() error {
		x.m = accessory.NewManager(g.Config.Accessory, g.Runner, g.Log.Named("accessory"))
		return nil
	})
	return x.m
}

func (g *Global) Player() *player.Manager {
	x := &g.services.player
	_ = x.do(func() error {
		x.m = player.NewManager(g.Config.Player, g.Runner, g.Log.Named("player"))
		return nil
	})
	return x.m
}

func (g *Global) System() *system.Manager {
	x := &g.services.system
	_ = x.do(func() error {
		x.m = system.NewManager(g.Config.System, g.Runner, g.Log.Named("system"))
		return nil
	})
	return x.m
}

// Library is scanned once, errors are sticky.
func (g *Global) Library() (*library.Library, error) {
	x := &g.services.library
	_ = x.do(func() error {
		x.l, x.err = library.Scan(g.Config.Library)
		return x.err
	})
	return x.l, x.err
}

// SetLibrary is for tests and tools.
func (g *Global) SetLibrary(l *library.Library) {
	x := &g.services.library
	_ = x.do(func() error {
		x.l = l
		return nil
	})
}

// RunServices starts collaborator goroutines under g.Alive.
// They stop with g.Stop().
func (g *Global) RunServices(ctx context.Context) {
	type runner interface {
		Run(context.Context, *alive.Alive)
	}
	for _, r := range []runner{g.Accessory(), g.Player(), g.System()} {
		if !g.Alive.Add(1) {
			g.Log.Errorf("RunServices after Stop")
			return
		}
		go r.Run(ctx, g.Alive)
	}
}
