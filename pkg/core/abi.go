package core

import (
	"context"

	"github.com/spf13/afero"
)

// ABI is the function surface of a foreign emulation core.
// Paths are in the core file namespace.
type ABI interface {
	Run(cartridge string, port int)
	MainLoop()
	CollectAudio(samples int)
	// AudioBuffers returns views of the core's own sample buffers,
	// they are overwritten by the next MainLoop or CollectAudio call.
	AudioBuffers(samples int) (left, right []float32)
	ReportButton(id int, down bool)
	IsPAL() bool
	ForcePAL(v bool)
	SaveSRAM()
	Freeze()
	Unfreeze()
	ShowFPS(v bool)
	SetSurface(handle uintptr)
	Close() error
}

// Loader opens a core and the file namespace it shares with the host.
type Loader func(ctx context.Context) (ABI, afero.Fs, error)
