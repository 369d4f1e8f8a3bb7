package core

import (
	"fmt"
	"strings"
	"time"
)

// TimingMode is the video timing of the console.
type TimingMode uint8

const (
	NTSC TimingMode = iota
	PAL
)

// Hz returns the native frame rate of the mode.
func (t TimingMode) Hz() int {
	if t == PAL {
		return 50
	}
	return 60
}

// Interval is the duration of one frame.
func (t TimingMode) Interval() time.Duration { return time.Second / time.Duration(t.Hz()) }

func (t TimingMode) String() string {
	switch t {
	case NTSC:
		return "NTSC"
	case PAL:
		return "PAL"
	}
	return fmt.Sprintf("TimingMode(%d)", uint8(t))
}

// ParseTiming reads a timing override, the empty string and auto mean no override.
func ParseTiming(s string) (*TimingMode, error) {
	var t TimingMode
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return nil, nil
	case "pal", "50":
		t = PAL
	case "ntsc", "60":
		t = NTSC
	default:
		return nil, fmt.Errorf("unknown timing mode: %v", s)
	}
	return &t, nil
}
