package input

import "sync"

// State is a set of controllers fed from the outside.
// Poll takes a snapshot so a tick sees a consistent state.
type State struct {
	mu      sync.Mutex
	live    [MaxSlots]uint32
	snap    [MaxSlots]uint32
	waiters []waiter
}

type waiter struct {
	slot int
	c    Control
	ch   chan struct{}
}

func NewState() *State { return &State{} }

// Set replaces the pressed buttons of the slot, bit i is Control(i).
func (s *State) Set(slot int, buttons uint32) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[slot] = buttons
	s.notify()
}

// Press changes a single control.
func (s *State) Press(slot int, c Control, down bool) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.live[slot] |= 1 << c
	} else {
		s.live[slot] &^= 1 << c
	}
	s.notify()
}

func (s *State) Poll() {
	s.mu.Lock()
	s.snap = s.live
	s.mu.Unlock()
}

func (s *State) IsControlDown(slot int, c Control) bool {
	if slot < 0 || slot >= MaxSlots {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap[slot]&(1<<c) != 0
}

func (s *State) WaitUntilReleased(slot int, c Control) <-chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= MaxSlots || s.live[slot]&(1<<c) == 0 {
		close(ch)
		return ch
	}
	s.waiters = append(s.waiters, waiter{slot: slot, c: c, ch: ch})
	return ch
}

func (s *State) notify() {
	n := 0
	for _, w := range s.waiters {
		if s.live[w.slot]&(1<<w.c) == 0 {
			close(w.ch)
			continue
		}
		s.waiters[n] = w
		n++
	}
	s.waiters = s.waiters[:n]
}
