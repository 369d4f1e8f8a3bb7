package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/core"
	"github.com/giongto35/retrorun/pkg/input"
	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/giongto35/retrorun/pkg/loop"
	"github.com/giongto35/retrorun/pkg/monitoring"
	"github.com/giongto35/retrorun/pkg/savestate"
	"github.com/giongto35/retrorun/pkg/store"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrNotLoaded   = errors.New("core is not loaded")
	ErrNoCartridge = errors.New("no cartridge")
	ErrNotStarted  = errors.New("session is not started")
	ErrStarted     = errors.New("session is already started")
)

type Options struct {
	// StorageRoot is the key prefix of all the namespaces.
	StorageRoot string
	// Port is the second controller port config, 1 is the multitap.
	Port        int
	SampleRate  int
	AudioLength int
	MaxCatchUp  int
	Slots       int
	Thumbnail   image.Point
	// Debug shows the core FPS counter.
	Debug bool
}

// Coordinator wires the core, the loop, the input and the saves together.
type Coordinator struct {
	opts        Options
	loader      core.Loader
	st          store.Store
	controllers input.Controllers
	sink        audio.Sink
	metrics     *monitoring.Metrics
	log         *logger.Logger

	mu      sync.Mutex
	session *Session
	bridge  *core.Bridge
	saves   *savestate.Manager
	mapper  *input.Mapper
	loop    *loop.Loop
	watcher *core.Watcher

	onPauseMenu func()
}

func New(opts Options, loader core.Loader, st store.Store, controllers input.Controllers, sink audio.Sink,
	metrics *monitoring.Metrics, log *logger.Logger) *Coordinator {
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if sink == nil {
		sink = audio.Discard{}
	}
	return &Coordinator{
		opts:        opts,
		loader:      loader,
		st:          st,
		controllers: controllers,
		sink:        sink,
		metrics:     metrics,
		log:         log.Module("session"),
	}
}

// OnPauseMenu sets the host pause menu, it is called after the battery flush.
func (c *Coordinator) OnPauseMenu(fn func()) { c.onPauseMenu = fn }

// OnSaveStatus sets the save status indicator, call after Load.
func (c *Coordinator) OnSaveStatus(fn func(savestate.Event)) {
	if c.saves != nil {
		c.saves.OnStatus(fn)
	}
}

// Load opens the foreign core.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bridge != nil {
		return nil
	}
	start := time.Now()
	b, err := core.Initialize(ctx, c.loader, c.log)
	if err != nil {
		return err
	}
	b.SetAudioLength(c.opts.AudioLength)
	c.bridge = b
	c.saves = savestate.New(b, c.st, savestate.Options{
		Slots:           c.opts.Slots,
		ThumbnailWidth:  c.opts.Thumbnail.X,
		ThumbnailHeight: c.opts.Thumbnail.Y,
	}, c.metrics, c.log)
	c.log.Info().Msgf("Core loaded in %v", time.Since(start))
	return nil
}

// SetCartridge validates the cartridge and derives its save namespace from the fingerprint.
// A nil timing means auto-detect.
func (c *Coordinator) SetCartridge(timing *core.TimingMode, name string, rom []byte, fingerprint string) error {
	if len(rom) == 0 {
		return &core.InvalidRomError{Size: len(rom)}
	}
	ns, err := store.NewNamespace(c.opts.StorageRoot, fingerprint)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.Started() {
		return ErrStarted
	}
	c.session = newSession(name, rom, ns.Fingerprint, ns, timing, c.opts.Port)
	c.log = c.log.Extend(c.log.With().
		Str(logger.SessionField, c.session.ShortId()).
		Str(logger.NamespaceField, ns.String()))
	c.log.Info().Msgf("Cartridge: %v, %v bytes, timing: %v", name, len(rom), timingName(timing))
	return nil
}

func timingName(t *core.TimingMode) string {
	if t == nil {
		return "auto"
	}
	return t.String()
}

// Start restores the saves and boots the cartridge.
// The loop is created here but runs only with Run or Advance.
func (c *Coordinator) Start(ctx context.Context, surface uintptr) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bridge == nil {
		return ErrNotLoaded
	}
	s := c.session
	if s == nil {
		return ErrNoCartridge
	}
	if s.Started() {
		return ErrStarted
	}

	c.bridge.SetSurface(surface)
	if c.opts.Debug {
		c.bridge.ShowFPS(true)
	}

	// the core reads its battery file when the cartridge boots
	c.saves.MigrateLegacySave(ctx, s.Namespace)
	c.saves.LoadBatterySave(ctx, s.Namespace)

	if s.Requested != nil {
		c.bridge.ForceTiming(*s.Requested)
	}
	if err := c.bridge.InstallCartridge(s.rom, s.Port); err != nil {
		return err
	}
	mode, err := c.bridge.TimingMode()
	if err != nil {
		return err
	}
	s.Effective = mode

	c.mapper = input.NewMapper(c.controllers, &countingReporter{c.bridge, c.metrics.ButtonReports},
		input.SlotsFor(s.Port), c.log)
	c.mapper.OnPause(c.showPauseMenu)

	c.loop = loop.New(loop.Options{
		Rate:       mode.Hz(),
		SampleRate: c.opts.SampleRate,
		MaxCatchUp: c.opts.MaxCatchUp,
	}, c.bridge, c.sink, c.mapper, c.log)
	c.metrics.WatchLoop(c.loop.Ticks, c.loop.Late)

	if dir, ok := c.bridge.HostDir(); ok {
		if w, err := core.Watch(dir, c.metrics.CoreSRAMWrites.Inc, c.log); err != nil {
			c.log.Warn().Err(err).Msg("no core file watcher")
		} else {
			c.watcher = w
		}
	}

	s.started.Store(true)
	c.saves.SetStarted(true)
	c.log.Info().Msgf("Started: %v (%vHz)", mode, mode.Hz())
	return nil
}

// Run ticks the loop with its own timer until the context is done.
func (c *Coordinator) Run(ctx context.Context) error {
	l := c.currentLoop()
	if l == nil {
		return ErrNotStarted
	}
	return l.Run(ctx)
}

// Advance ticks the loop from a host callback.
func (c *Coordinator) Advance(elapsed time.Duration) int {
	if l := c.currentLoop(); l != nil {
		return l.Advance(elapsed)
	}
	return 0
}

func (c *Coordinator) currentLoop() *loop.Loop {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

// Pause freezes or resumes the loop, returns true if the state was changed.
func (c *Coordinator) Pause(v bool) bool {
	if l := c.currentLoop(); l != nil {
		return l.Pause(v)
	}
	return false
}

func (c *Coordinator) Paused() bool {
	if l := c.currentLoop(); l != nil {
		return l.Paused()
	}
	return true
}

// EnterPauseMenu freezes the loop and then flushes the battery save.
func (c *Coordinator) EnterPauseMenu(ctx context.Context) {
	c.Pause(true)
	if s := c.Session(); s != nil && s.Started() {
		c.saves.FlushBatterySave(ctx, s.Namespace)
	}
}

func (c *Coordinator) showPauseMenu() {
	c.EnterPauseMenu(context.Background())
	if c.onPauseMenu != nil {
		c.onPauseMenu()
	}
}

// OnExitFlush saves the battery on exit, failures are only logged.
func (c *Coordinator) OnExitFlush(ctx context.Context) {
	s := c.Session()
	if s == nil || !s.Started() {
		return
	}
	c.Pause(true)
	if c.saves.FlushBatterySave(ctx, s.Namespace) {
		c.log.Info().Msg("Saved on exit")
	}
}

func (c *Coordinator) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Effective returns the timing the loop runs with.
func (c *Coordinator) Effective() (core.TimingMode, error) {
	s := c.Session()
	if s == nil || !s.Started() {
		return core.NTSC, ErrNotStarted
	}
	return s.Effective, nil
}

// slotOp runs fn with the loop paused, the previous state is restored afterwards.
func (c *Coordinator) slotOp(fn func(ns store.Namespace) bool) bool {
	s := c.Session()
	if s == nil || !s.Started() {
		return false
	}
	if c.Pause(true) {
		defer c.Pause(false)
	}
	return fn(s.Namespace)
}

func (c *Coordinator) ListSlots(ctx context.Context) (slots []savestate.SlotInfo) {
	s := c.Session()
	if s == nil || c.saves == nil {
		return nil
	}
	return c.saves.ListSlots(ctx, s.Namespace)
}

// SaveSlot snapshots the core into the slot, the thumbnail may be nil.
func (c *Coordinator) SaveSlot(ctx context.Context, index int, thumb image.Image) bool {
	return c.slotOp(func(ns store.Namespace) bool { return c.saves.SaveSlot(ctx, ns, index, thumb) })
}

func (c *Coordinator) LoadSlot(ctx context.Context, index int) bool {
	return c.slotOp(func(ns store.Namespace) bool {
		ok := c.saves.LoadSlot(ctx, ns, index)
		if ok {
			c.mapper.Reset()
		}
		return ok
	})
}

func (c *Coordinator) DeleteSlot(ctx context.Context, index int) bool {
	s := c.Session()
	if s == nil || c.saves == nil {
		return false
	}
	return c.saves.DeleteSlot(ctx, s.Namespace, index)
}

func (c *Coordinator) SlotThumbnail(ctx context.Context, index int) ([]byte, bool) {
	s := c.Session()
	if s == nil || c.saves == nil {
		return nil, false
	}
	return c.saves.Thumbnail(ctx, s.Namespace, index)
}

// Close stops everything, call after OnExitFlush.
func (c *Coordinator) Close() error {
	c.Pause(true)
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs *multierror.Error
	if c.watcher != nil {
		errs = multierror.Append(errs, c.watcher.Close())
	}
	if c.mapper != nil {
		c.mapper.Close()
	}
	errs = multierror.Append(errs, c.sink.Close())
	if c.bridge != nil {
		errs = multierror.Append(errs, c.bridge.Close())
	}
	if c.st != nil {
		errs = multierror.Append(errs, c.st.Close())
	}
	if c.session != nil {
		c.session.started.Store(false)
	}
	if c.saves != nil {
		c.saves.SetStarted(false)
	}
	return errs.ErrorOrNil()
}

type countingReporter struct {
	r input.Reporter
	c prometheus.Counter
}

func (r *countingReporter) ReportButton(id int, down bool) {
	r.r.ReportButton(id, down)
	r.c.Inc()
}
