// Package loop runs the core at its native frame rate.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giongto35/retrorun/pkg/audio"
	"github.com/giongto35/retrorun/pkg/input"
	"github.com/giongto35/retrorun/pkg/logger"
)

// Frame is the emulation core.
type Frame interface {
	StepFrame()
	DrainAudio(n int, fn func(left, right []float32))
}

type Poller interface {
	Poll(p input.Pauser)
}

// DefaultMaxCatchUp absorbs the callback jitter of the host.
const DefaultMaxCatchUp = 4

type Options struct {
	// Rate is the number of ticks per second (50 or 60).
	Rate       int
	SampleRate int
	// MaxCatchUp is the max number of ticks run in a row after a stall.
	MaxCatchUp int
}

func (o Options) SamplesPerTick() int     { return o.SampleRate / o.Rate }
func (o Options) Interval() time.Duration { return time.Second / time.Duration(o.Rate) }
func (o Options) withDefaults() Options {
	if o.Rate <= 0 {
		o.Rate = 60
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 48000
	}
	if o.MaxCatchUp <= 0 {
		o.MaxCatchUp = DefaultMaxCatchUp
	}
	return o
}

// Loop runs ticks one by one: step, audio drain, audio sink, input poll.
type Loop struct {
	opts  Options
	frame Frame
	sink  audio.Sink
	poll  Poller
	log   *logger.Logger

	// guards paused and acc
	mu     sync.Mutex
	paused bool
	acc    time.Duration

	// held for the whole tick
	tickMu sync.Mutex

	ticks atomic.Int64
	late  atomic.Int64
}

func New(opts Options, frame Frame, sink audio.Sink, poll Poller, log *logger.Logger) *Loop {
	opts = opts.withDefaults()
	if sink == nil {
		sink = audio.Discard{}
	}
	l := &Loop{opts: opts, frame: frame, sink: sink, poll: poll, log: log.Module("loop")}
	l.log.Info().Msgf("Loop: %vHz, %v samples per tick", opts.Rate, opts.SamplesPerTick())
	return l
}

// Run ticks with its own timer until the context is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.Interval())
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			l.Advance(elapsed)
		case <-ctx.Done():
			l.log.Debug().Msgf("Loop stopped after %v ticks (%v late)", l.Ticks(), l.Late())
			return nil
		}
	}
}

// Advance adds the elapsed time and runs all the ticks that are due.
// It can be called from any periodic host callback, the pacing does not
// depend on the callback rate.
// Returns the number of ticks done.
func (l *Loop) Advance(elapsed time.Duration) int {
	interval := l.opts.Interval()

	l.mu.Lock()
	if l.paused {
		l.mu.Unlock()
		return 0
	}
	l.acc += elapsed
	n := int(l.acc / interval)
	l.acc -= time.Duration(n) * interval
	if n > l.opts.MaxCatchUp {
		skip := n - l.opts.MaxCatchUp
		l.late.Add(int64(skip))
		l.log.Trace().Msgf("Skipped %v late ticks", skip)
		n = l.opts.MaxCatchUp
	}
	l.mu.Unlock()

	done := 0
	for ; done < n; done++ {
		if !l.tick() {
			break
		}
	}
	return done
}

func (l *Loop) tick() bool {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	if l.Paused() {
		return false
	}
	l.frame.StepFrame()
	l.frame.DrainAudio(l.opts.SamplesPerTick(), l.sink.Play)
	if l.poll != nil {
		l.poll.Poll((*tickPauser)(l))
	}
	l.ticks.Add(1)
	return true
}

// Pause freezes or resumes the loop, returns true if the state was changed.
// Pause(true) returns only after the running tick is finished.
// Must not be called from inside a tick.
func (l *Loop) Pause(v bool) bool {
	changed := l.set(v)
	if v {
		l.tickMu.Lock()
		l.tickMu.Unlock()
	}
	return changed
}

func (l *Loop) set(v bool) bool {
	l.mu.Lock()
	changed := l.paused != v
	l.paused = v
	if changed && !v {
		// no replay of the paused time
		l.acc = 0
	}
	l.mu.Unlock()
	if changed {
		l.sink.Pause(v)
		l.log.Debug().Msgf("Paused: %v", v)
	}
	return changed
}

func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

func (l *Loop) Ticks() int64     { return l.ticks.Load() }
func (l *Loop) Late() int64      { return l.late.Load() }
func (l *Loop) Options() Options { return l.opts }

// tickPauser pauses the loop from inside of a tick without waiting for it.
type tickPauser Loop

func (p *tickPauser) RequestPause() bool { return (*Loop)(p).set(true) }
