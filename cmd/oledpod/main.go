// Device UI daemon: OLED screen, joystick, buttons and background collaborators.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/oledpod/internal/state"
	"github.com/temoto/oledpod/internal/ui"
	"github.com/temoto/oledpod/log2"
)

var BuildVersion string = "unknown" // set by ldflags -X

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "oledpod.hcl", "")
	flagDebug := cmdline.Bool("debug", false, "debug logging")
	_ = cmdline.Parse(os.Args[1:])

	interactive := isatty.IsTerminal(os.Stderr.Fd())
	if sdnotify("start") || !interactive {
		// we're under systemd, assume systemd journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	if !*flagDebug {
		log.SetLevel(log2.LInfo)
	}

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
	config := state.MustReadConfig(log, state.NewOsFullReader(), *flagConfig)
	if interactive && config.Hardware.Display.Driver == state.DisplayDriverTermsim {
		// terminal belongs to simulator screen
		log.SetLevel(log2.LError)
	}
	g.MustInit(ctx, config)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigch
		log.Infof("signal=%v stopping", s)
		g.Stop()
	}()

	u := ui.UI{}
	if err := u.Init(ctx); err != nil {
		g.Fatal(errors.Annotate(err, "ui Init()"))
	}
	g.RunServices(ctx)
	sdnotify(daemon.SdNotifyReady)
	log.Debugf("oledpod init complete")

	err := u.Loop(ctx)
	sdnotify(daemon.SdNotifyStopping)
	if err != nil {
		g.Fatal(errors.Annotate(err, "ui loop"))
	}
	if !g.StopWait(5 * time.Second) {
		log.Errorf("collaborators did not stop in time")
	}
	g.Error(g.CloseHardware(), "close hardware")
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
