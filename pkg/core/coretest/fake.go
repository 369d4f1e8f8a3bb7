// Package coretest has an in-memory core for tests.
package coretest

import (
	"context"
	"sync"

	"github.com/giongto35/retrorun/pkg/core"
	"github.com/spf13/afero"
)

type Press struct {
	ID   int
	Down bool
}

// Fake is a core that keeps its files in memory.
//
// SRAM is written into the battery file on SaveSRAM,
// State is written into the snapshot file on Freeze and read back on Unfreeze.
type Fake struct {
	mu sync.Mutex

	Fs        afero.Fs
	PAL       bool
	ForcedPAL *bool
	SRAM      []byte
	State     []byte

	Cartridge []byte
	Port      int
	Running   bool
	Frames    int
	Collected []int
	Presses   []Press
	Surface   uintptr
	FPS       bool
	Closed    bool

	// LoadErr fails the loader.
	LoadErr error

	left, right []float32
}

var _ core.ABI = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Fs:    afero.NewMemMapFs(),
		left:  make([]float32, core.DefaultAudioLength),
		right: make([]float32, core.DefaultAudioLength),
	}
}

func (f *Fake) Loader() core.Loader {
	return func(context.Context) (core.ABI, afero.Fs, error) {
		if f.LoadErr != nil {
			return nil, nil, f.LoadErr
		}
		return f, f.Fs, nil
	}
}

func (f *Fake) Run(path string, port int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cartridge, _ = afero.ReadFile(f.Fs, path)
	f.Port = port
	f.Running = true
	// a real core picks up its battery file on boot
	if b, err := afero.ReadFile(f.Fs, core.BatteryPath); err == nil {
		f.SRAM = b
	}
}

// MainLoop fills the audio buffers with the frame number.
func (f *Fake) MainLoop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Frames++
	for i := range f.left {
		f.left[i] = float32(f.Frames)
		f.right[i] = -float32(f.Frames)
	}
}

func (f *Fake) CollectAudio(samples int) {
	f.mu.Lock()
	f.Collected = append(f.Collected, samples)
	f.mu.Unlock()
}

func (f *Fake) AudioBuffers(samples int) (left, right []float32) {
	return f.left[:samples], f.right[:samples]
}

func (f *Fake) ReportButton(id int, down bool) {
	f.mu.Lock()
	f.Presses = append(f.Presses, Press{ID: id, Down: down})
	f.mu.Unlock()
}

func (f *Fake) IsPAL() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ForcedPAL != nil {
		return *f.ForcedPAL
	}
	return f.PAL
}

func (f *Fake) ForcePAL(v bool) {
	f.mu.Lock()
	f.ForcedPAL = &v
	f.mu.Unlock()
}

func (f *Fake) SaveSRAM() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SRAM != nil {
		_ = afero.WriteFile(f.Fs, core.BatteryPath, f.SRAM, 0644)
	}
}

func (f *Fake) Freeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = afero.WriteFile(f.Fs, core.SnapshotPath, f.State, 0644)
}

func (f *Fake) Unfreeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, err := afero.ReadFile(f.Fs, core.SnapshotPath); err == nil {
		f.State = b
	}
}

func (f *Fake) ShowFPS(v bool) { f.mu.Lock(); f.FPS = v; f.mu.Unlock() }

func (f *Fake) SetSurface(handle uintptr) { f.mu.Lock(); f.Surface = handle; f.mu.Unlock() }

func (f *Fake) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// SetSRAM changes the live battery memory.
func (f *Fake) SetSRAM(b []byte) {
	f.mu.Lock()
	f.SRAM = b
	f.mu.Unlock()
}

// SetState changes the live machine state.
func (f *Fake) SetState(b []byte) {
	f.mu.Lock()
	f.State = b
	f.mu.Unlock()
}

func (f *Fake) GetState() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.State
}

func (f *Fake) GetPresses() []Press {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Press(nil), f.Presses...)
}

func (f *Fake) GetFrames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Frames
}
