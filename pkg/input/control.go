// Package input maps controller state onto the core buttons.
package input

import "strconv"

// Control is a logical controller button.
type Control uint8

const (
	Right Control = iota
	Left
	Down
	Up
	Start
	Select
	B
	A
	Y
	X
	LBump
	RBump
	// Escape opens the pause menu, it is never passed to the core.
	Escape
)

// ButtonsPerSlot is the number of core buttons of one controller.
const ButtonsPerSlot = 12

// MaxSlots is the number of controllers with the multitap.
const MaxSlots = 5

var names = [...]string{"right", "left", "down", "up", "start", "select", "b", "a", "y", "x", "lbump", "rbump", "escape"}

func (c Control) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "control(" + strconv.Itoa(int(c)) + ")"
}

// SlotsFor returns the number of controllers for the second port config,
// 1 means the multitap.
func SlotsFor(port int) int {
	if port == 1 {
		return MaxSlots
	}
	return 2
}
