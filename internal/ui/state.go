package ui

import (
	"time"

	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/nav"
	"github.com/temoto/oledpod/internal/player"
	"github.com/temoto/oledpod/internal/system"
)

// State is owned by UI loop goroutine, collaborators only see copies.
type State struct {
	Tab nav.Tab

	Files       nav.List
	Accessories nav.List
	Devices     []accessory.Accessory // named only
	Scanning    bool

	Player   player.Status
	Marquee  nav.Marquee
	LastPath string

	System system.Status
	QR     bool

	Error      string
	ErrorUntil time.Time
}

func newState(files, rows, chars int) State {
	st := State{
		Tab:         nav.TabFiles,
		Files:       nav.NewList(rows),
		Accessories: nav.NewList(rows),
		Marquee:     nav.NewMarquee(chars),
	}
	st.Files.SetCount(files)
	return st
}

func (st *State) setAccessories(s accessory.Status) {
	st.Devices = accessory.Named(s.Accessories)
	st.Accessories.SetCount(len(st.Devices))
	st.Scanning = s.Scanning
}

func (st *State) setPlayer(s player.Status) {
	st.Player = s
	st.Marquee.SetText(s.Filename)
}

func (st *State) selectedAccessory() (accessory.Accessory, bool) {
	i := st.Accessories.Cursor()
	if i < len(st.Devices) {
		return st.Devices[i], true
	}
	return accessory.Accessory{}, false
}

func (st *State) errorVisible(now time.Time) bool {
	return st.Error != "" && now.Before(st.ErrorUntil)
}
