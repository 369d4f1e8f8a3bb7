package input

import (
	"sync"
	"sync/atomic"

	"github.com/giongto35/retrorun/pkg/logger"
)

// Controllers is the controller device layer.
type Controllers interface {
	// Poll takes a snapshot of all the controllers.
	Poll()
	IsControlDown(slot int, c Control) bool
	// WaitUntilReleased closes the channel once the control is up.
	WaitUntilReleased(slot int, c Control) <-chan struct{}
}

type Reporter interface {
	ReportButton(id int, down bool)
}

// Pauser freezes the loop from inside of a tick.
type Pauser interface {
	// RequestPause returns true if the loop was running.
	RequestPause() bool
}

// pause control slots
var pauseSlots = [...]int{0, 1}

const (
	idle int32 = iota
	awaitingRelease
)

// PauseWatcher tracks the pause control.
type PauseWatcher struct {
	state atomic.Int32
}

func (w *PauseWatcher) Awaiting() bool { return w.state.Load() == awaitingRelease }

// Check requests the pause when the pause control is down.
// On success fn is called from another goroutine after the control is released.
func (w *PauseWatcher) Check(c Controllers, p Pauser, done <-chan struct{}, fn func()) bool {
	if w.Awaiting() {
		return false
	}
	for _, slot := range pauseSlots {
		if !c.IsControlDown(slot, Escape) || !p.RequestPause() {
			continue
		}
		w.state.Store(awaitingRelease)
		released := c.WaitUntilReleased(slot, Escape)
		go func() {
			select {
			case <-released:
			case <-done:
				w.state.Store(idle)
				return
			}
			w.state.Store(idle)
			if fn != nil {
				fn()
			}
		}()
		return true
	}
	return false
}

type Mapper struct {
	c        Controllers
	r        Reporter
	bindings []Binding
	pause    PauseWatcher
	onPause  func()
	log      *logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewMapper(c Controllers, r Reporter, slots int, log *logger.Logger) *Mapper {
	if slots < 1 || slots > MaxSlots {
		slots = 2
	}
	return &Mapper{
		c:        c,
		r:        r,
		bindings: Bindings(slots),
		log:      log.Module("input"),
		done:     make(chan struct{}),
	}
}

// OnPause sets the pause menu callback, should be set before the first Poll.
func (m *Mapper) OnPause(fn func()) { m.onPause = fn }

// Poll is called once per tick.
// When the pause control is pressed the bindings are not checked.
func (m *Mapper) Poll(p Pauser) {
	m.c.Poll()
	if m.pause.Check(m.c, p, m.done, m.showPause) {
		m.log.Debug().Msg("Pause requested")
		return
	}
	for i := range m.bindings {
		b := &m.bindings[i]
		b.Update(m.c.IsControlDown(b.Slot, b.Control), m.r)
	}
}

func (m *Mapper) showPause() {
	if m.onPause != nil {
		m.onPause()
	}
}

// Reset releases every button still held in the core.
func (m *Mapper) Reset() {
	for i := range m.bindings {
		m.bindings[i].Update(false, m.r)
	}
}

func (m *Mapper) Slots() int { return len(m.bindings) / ButtonsPerSlot }

// Close stops waiting for the pause control release.
func (m *Mapper) Close() { m.closeOnce.Do(func() { close(m.done) }) }
