package core

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/giongto35/retrorun/pkg/logger"
)

// Watcher observes the battery file writes the core does by itself.
type Watcher struct {
	w      *fsnotify.Watcher
	writes atomic.Int64
	done   chan struct{}
}

// Watch starts watching the dir, onWrite may be nil.
func Watch(dir string, onWrite func(), log *logger.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	battery := filepath.Base(BatteryPath)
	wa := &Watcher{w: w, done: make(chan struct{})}
	go func() {
		defer close(wa.done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != battery || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				wa.writes.Add(1)
				log.Trace().Msgf("Core wrote %v", ev.Name)
				if onWrite != nil {
					onWrite()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watcher")
			}
		}
	}()
	return wa, nil
}

// Writes returns the number of observed battery file writes.
func (w *Watcher) Writes() int64 { return w.writes.Load() }

func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	return err
}
