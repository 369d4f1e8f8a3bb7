package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	goos "os"
	"time"

	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/config"
	"github.com/giongto35/retrorun/pkg/core"
	"github.com/giongto35/retrorun/pkg/games"
	"github.com/giongto35/retrorun/pkg/input"
	"github.com/giongto35/retrorun/pkg/input/remote"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/giongto35/retrorun/pkg/monitoring"
	"github.com/giongto35/retrorun/pkg/os"
	"github.com/giongto35/retrorun/pkg/savestate"
	"github.com/giongto35/retrorun/pkg/session"
	"github.com/giongto35/retrorun/pkg/store"
	"github.com/giongto35/retrorun/pkg/thread"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var Version = "?"

type args struct {
	rom         string
	name        string
	timing      string
	port        int
	fingerprint string
	loadSlot    int
	listSlots   bool
	listRoms    bool
}

func run() error {
	conf := config.NewConfig()
	var a args
	fs := flag.CommandLine
	conf.ParseFlags(fs)
	fs.StringVar(&a.rom, "rom", "", "Path to the cartridge image or its name in the library")
	fs.StringVar(&a.name, "name", "", "Display name of the cartridge")
	fs.StringVar(&a.timing, "timing", "auto", "Video timing (auto, ntsc, pal)")
	fs.IntVar(&a.port, "port2", 0, "Second controller port config, 1 is the multitap")
	fs.StringVar(&a.fingerprint, "fingerprint", "", "Save namespace id, the rom md5 by default")
	fs.IntVar(&a.loadSlot, "load-slot", -1, "Restore the save state slot after the boot")
	fs.BoolVar(&a.listSlots, "list-slots", false, "Print the save state slots and exit")
	fs.BoolVar(&a.listRoms, "list-roms", false, "Print the library cartridges and exit")
	flag.Parse()

	var log *logger.Logger
	if conf.Log.Console {
		log = logger.NewConsole(conf.Log.Debug, "r", conf.Log.NoColor)
	} else {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)

	lib := games.NewLib(conf.Library, log)
	if a.listRoms {
		if err := lib.Scan(); err != nil {
			return err
		}
		for _, g := range lib.GetAll() {
			fmt.Printf("%-40s %v\n", g.Name, g.Path)
		}
		return nil
	}

	if a.rom == "" {
		return errors.New("no rom, use --rom")
	}
	timing, err := core.ParseTiming(a.timing)
	if err != nil {
		return err
	}
	path := a.rom
	if !os.Exists(path) {
		if err = lib.Scan(); err == nil {
			if _, p, ok := lib.FindGameByName(a.rom); ok {
				path = p
			}
		}
	}
	cart, err := games.Open(path)
	if err != nil {
		return err
	}
	if a.name == "" {
		a.name = cart.Name
	}
	if a.fingerprint == "" {
		a.fingerprint = cart.Fingerprint
	}

	metrics := monitoring.NewMetrics()
	st, err := store.New(conf.Storage, log)
	if err != nil {
		return err
	}

	var controllers input.Controllers
	var rc *remote.Server
	if conf.Input.Remote.Enabled {
		rc = remote.New(conf.Input.Remote.Addr, log)
		controllers = rc
	} else {
		controllers = input.NewState()
	}

	var sink audio.Sink
	err = thread.Call(func() (err error) {
		sink, err = newSink(conf.Audio, conf.Emulator.SampleRate, log)
		return
	})
	if err != nil {
		_ = st.Close()
		return err
	}

	c := session.New(session.Options{
		StorageRoot: conf.Storage.Prefix,
		Port:        a.port,
		SampleRate:  conf.Emulator.SampleRate,
		AudioLength: conf.Emulator.AudioLength,
		MaxCatchUp:  conf.Emulator.MaxCatchUp,
		Slots:       conf.Emulator.Slots,
		Thumbnail:   image.Pt(conf.Emulator.Thumbnail.Width, conf.Emulator.Thumbnail.Height),
		Debug:       conf.Core.Debug,
	}, core.NativeLoader(conf.Core, conf.Emulator.AudioLength, log), st, controllers, sink, metrics, log)
	defer func() {
		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("close")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = c.Load(ctx); err != nil {
		return err
	}
	c.OnSaveStatus(func(e savestate.Event) {
		ev := log.Info()
		if e.Err != nil {
			ev = log.Warn().Err(e.Err)
		}
		ev.Int("slot", e.Slot).Msg(e.Status.String())
	})
	c.OnPauseMenu(func() { log.Info().Msgf("Paused, %v", resumeHint) })
	if err = c.SetCartridge(timing, a.name, cart.Data, a.fingerprint); err != nil {
		return err
	}

	if a.listSlots {
		for _, s := range c.ListSlots(ctx) {
			fmt.Printf("%2d  %v  %6d bytes  thumbnail: %v\n", s.Index, s.Time.Format(time.DateTime), s.Size, s.HasThumbnail)
		}
		return nil
	}

	if err = c.Start(ctx, 0); err != nil {
		return err
	}
	if a.loadSlot >= 0 && !c.LoadSlot(ctx, a.loadSlot) {
		log.Warn().Msgf("no slot %v", a.loadSlot)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(gctx) })
	if conf.Monitoring.IsEnabled() {
		mon := monitoring.New(conf.Monitoring, metrics.Registry, log)
		g.Go(func() error { return mon.Run(gctx) })
	}
	if rc != nil {
		g.Go(func() error { return rc.Run(gctx) })
	}

	resume := resumeSignal()
	g.Go(func() error {
		for {
			select {
			case <-resume:
				if c.Pause(false) {
					log.Info().Msg("Resumed")
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	select {
	case <-os.ExpectTermination():
		log.Info().Msg("Shutting down")
	case <-gctx.Done():
	}
	cancel()
	err = g.Wait()

	// the exit flush runs before the close
	flushCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	c.OnExitFlush(flushCtx)
	done()
	return err
}

func main() {
	thread.Run(func() {
		if err := run(); err != nil {
			logger.Default().Error().Err(err).Msg("retrorun failed")
			goos.Exit(1)
		}
	})
}
