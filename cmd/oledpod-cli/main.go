// Bench tool: run collaborator operations by hand, without display and buttons.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/oledpod/hardware/input"
	"github.com/temoto/oledpod/helpers/cli"
	"github.com/temoto/oledpod/internal/accessory"
	"github.com/temoto/oledpod/internal/library"
	"github.com/temoto/oledpod/internal/state"
	"github.com/temoto/oledpod/log2"
)

var log = log2.NewStderr(log2.LDebug)

type command struct {
	name string
	args string
	help string
	f    func(ctx context.Context, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"help", "", "show this text", doUsage},
		{"log", "yes|no", "debug logging", doLog},
		{"bt-devices", "", "list accessories with flags (connected trusted paired)", doDevices},
		{"bt-scan", "on|off", "discovery child process", doScan},
		{"bt-connect", "ADDR", "trust if needed, connect", doConnect},
		{"bt-disconnect", "ADDR", "", doDisconnect},
		{"ls", "", "audio library listing", doList},
		{"play", "PATH", "start player or toggle pause", doPlay},
		{"status", "", "player status", doStatus},
		{"stop", "", "kill player", doStop},
		{"volume", "[+N|-N]", "show or change sink volume", doVolume},
		{"radio", "[on|off]", "show or change wifi radio block", doRadio},
		{"ip", "", "local address", doIP},
	}
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "oledpod.hcl", "")
	_ = cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	config.Hardware.Display.Driver = state.DisplayDriverNone
	ctx, g := state.NewContext(log)
	g.Hardware.Input.R = nopReader{} // cli does not read buttons
	g.MustInit(ctx, config)
	defer g.Player().Stop()
	defer g.Accessory().StopScan()

	if err := g.Accessory().Prepare(ctx); err != nil {
		log.Error(errors.Annotate(err, "accessory prepare"))
	}
	cli.MainLoop("oledpod-cli", newExecutor(ctx), newCompleter())
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := make([]prompt.Suggest, 0, len(commands))
	for _, c := range commands {
		suggests = append(suggests, prompt.Suggest{Text: c.name, Description: strings.TrimSpace(c.args + " " + c.help)})
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		words := strings.Fields(line)
		if len(words) == 0 {
			return
		}
		for _, c := range commands {
			if c.name == words[0] {
				if err := c.f(ctx, words[1:]); err != nil {
					g.Log.Error(errors.ErrorStack(err))
				}
				return
			}
		}
		g.Log.Errorf("unknown command=%s, try help", words[0])
	}
}

func doUsage(ctx context.Context, args []string) error {
	b := strings.Builder{}
	for _, c := range commands {
		fmt.Fprintf(&b, "- %-14s %-8s %s\n", c.name, c.args, c.help)
	}
	log.Infof("commands:\n%s", b.String())
	return nil
}

func doLog(ctx context.Context, args []string) error {
	g := state.GetGlobal(ctx)
	switch argOr(args, "") {
	case "yes":
		g.Log.SetLevel(log2.LDebug)
	case "no":
		g.Log.SetLevel(log2.LError)
	default:
		return errors.NotValidf("log=%v (valid: yes, no)", args)
	}
	return nil
}

func doDevices(ctx context.Context, args []string) error {
	list, err := state.GetGlobal(ctx).Accessory().List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	for _, a := range list {
		log.Infof("%s", a.String())
	}
	log.Infof("total=%d named=%d", len(list), len(accessory.Named(list)))
	return nil
}

func doScan(ctx context.Context, args []string) error {
	m := state.GetGlobal(ctx).Accessory()
	switch argOr(args, "on") {
	case "on":
		return m.StartScan(ctx)
	case "off":
		m.StopScan()
		return nil
	}
	return errors.NotValidf("bt-scan %v", args)
}

func doConnect(ctx context.Context, args []string) error {
	addr, err := accessory.ParseAddress(argOr(args, ""))
	if err != nil {
		return err
	}
	return state.GetGlobal(ctx).Accessory().Handle(ctx, accessory.Connect(addr))
}

func doDisconnect(ctx context.Context, args []string) error {
	addr, err := accessory.ParseAddress(argOr(args, ""))
	if err != nil {
		return err
	}
	return state.GetGlobal(ctx).Accessory().Handle(ctx, accessory.Disconnect(addr))
}

func doList(ctx context.Context, args []string) error {
	g := state.GetGlobal(ctx)
	lib, err := library.Scan(g.Config.Library)
	if err != nil {
		return err
	}
	for i, t := range lib.Tracks() {
		log.Infof("%3d %s", i, t.Name)
	}
	log.Infof("dir=%s total=%d", lib.Dir(), lib.Len())
	return nil
}

func doPlay(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.NotValidf("play without path")
	}
	return state.GetGlobal(ctx).Player().Toggle(ctx, strings.Join(args, " "))
}

func doStatus(ctx context.Context, args []string) error {
	s, ok, err := state.GetGlobal(ctx).Player().Status(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Infof("player idle")
		return nil
	}
	log.Infof("%s", s.String())
	return nil
}

func doStop(ctx context.Context, args []string) error {
	state.GetGlobal(ctx).Player().Stop()
	return nil
}

func doVolume(ctx context.Context, args []string) error {
	m := state.GetGlobal(ctx).System()
	if len(args) != 0 {
		delta, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Annotatef(err, "volume delta=%s", args[0])
		}
		if err = m.AdjustVolume(ctx, delta); err != nil {
			return err
		}
	}
	v, err := m.Volume(ctx)
	if err != nil {
		return err
	}
	log.Infof("volume=%d%%", v)
	return nil
}

func doRadio(ctx context.Context, args []string) error {
	m := state.GetGlobal(ctx).System()
	switch argOr(args, "") {
	case "":
	case "on":
		if err := m.SetRadio(ctx, true); err != nil {
			return err
		}
	case "off":
		if err := m.SetRadio(ctx, false); err != nil {
			return err
		}
	default:
		return errors.NotValidf("radio %v", args)
	}
	enabled, err := m.Radio(ctx)
	if err != nil {
		return err
	}
	log.Infof("radio enabled=%t", enabled)
	return nil
}

func doIP(ctx context.Context, args []string) error {
	ip := state.GetGlobal(ctx).System().LocalIP()
	if ip == "" {
		ip = "offline"
	}
	log.Infof("ip=%s", ip)
	return nil
}

func argOr(args []string, def string) string {
	if len(args) == 0 {
		return def
	}
	return args[0]
}

type nopReader struct{}

func (nopReader) ReadLevels(input.Levels) error { return nil }
func (nopReader) Close() error                  { return nil }
