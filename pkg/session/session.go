// Package session drives one emulation session from the module load to the exit.
package session

import (
	"sync/atomic"

	"github.com/giongto35/retrorun/pkg/core"
	"github.com/giongto35/retrorun/pkg/store"
	"github.com/gofrs/uuid"
)

// Session is the state of the running cartridge.
type Session struct {
	ID          uuid.UUID
	Name        string
	Fingerprint string
	Namespace   store.Namespace
	Port        int
	// Requested is nil when the timing is auto-detected.
	Requested *core.TimingMode
	Effective core.TimingMode

	rom     []byte
	started atomic.Bool
}

func newSession(name string, rom []byte, fingerprint string, ns store.Namespace, timing *core.TimingMode, port int) *Session {
	id, err := uuid.NewV4()
	if err != nil {
		id = uuid.Nil
	}
	return &Session{
		ID:          id,
		Name:        name,
		Fingerprint: fingerprint,
		Namespace:   ns,
		Port:        port,
		Requested:   timing,
		rom:         rom,
	}
}

func (s *Session) Started() bool { return s.started.Load() }

// ShortId returns the first part of the session id.
func (s *Session) ShortId() string { return s.ID.String()[:8] }
