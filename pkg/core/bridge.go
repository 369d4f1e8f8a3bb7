// Package core talks to a foreign emulation core.
//
// The bridge is driven by a single sequential context (the timing loop),
// out-of-tick calls (saves, slot loads) happen only while the loop is paused.
// All calls into the core are serialized.
package core

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/giongto35/retrorun/pkg/logger"
	"github.com/spf13/afero"
)

// Fixed file paths inside the core namespace.
const (
	CartridgePath = "/rom.sfc"
	BatteryPath   = "/rom.srm"
	SnapshotPath  = "/freeze.out"
)

// DefaultAudioLength is the capacity of the core sample buffers (per channel).
const DefaultAudioLength = 8192

type Bridge struct {
	mu  sync.Mutex
	abi ABI
	fs  afero.Fs
	log *logger.Logger

	audioLength int
	forced      *TimingMode
	installed   bool
}

// Initialize loads the foreign core, any failure is a ModuleLoadError.
func Initialize(ctx context.Context, load Loader, log *logger.Logger) (*Bridge, error) {
	log = log.Module("core")
	abi, ns, err := load(ctx)
	if err != nil {
		var mle *ModuleLoadError
		if errors.As(err, &mle) {
			return nil, err
		}
		return nil, &ModuleLoadError{Err: err}
	}
	if abi == nil || ns == nil {
		return nil, &ModuleLoadError{Err: errors.New("loader returned no core")}
	}
	log.Debug().Msg("Core is ready")
	return &Bridge{abi: abi, fs: ns, log: log, audioLength: DefaultAudioLength}, nil
}

// SetAudioLength sets the capacity of the core audio buffers.
func (b *Bridge) SetAudioLength(n int) {
	if n > 0 {
		b.audioLength = n
	}
}

func (b *Bridge) AudioLength() int { return b.audioLength }

// ForceTiming overrides the auto-detected timing of the cartridge.
// The override stays until the bridge is closed.
func (b *Bridge) ForceTiming(mode TimingMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.abi.ForcePAL(mode == PAL)
	b.forced = &mode
	b.log.Info().Msgf("Forced timing: %v", mode)
}

// InstallCartridge writes the cartridge into the namespace and boots it.
// An empty cartridge is rejected before touching the core or the namespace.
func (b *Bridge) InstallCartridge(rom []byte, port int) error {
	if len(rom) == 0 {
		return &InvalidRomError{Size: len(rom)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.installed {
		return ErrAlreadyInstalled
	}
	if err := afero.WriteFile(b.fs, CartridgePath, rom, 0644); err != nil {
		return err
	}
	b.abi.Run(CartridgePath, port)
	b.installed = true
	b.log.Info().Msgf("Cartridge is running: %v bytes, port2: %v", len(rom), port)
	return nil
}

// TimingMode returns the effective timing mode, the forced one wins.
func (b *Bridge) TimingMode() (TimingMode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.installed {
		return NTSC, ErrNotInstalled
	}
	if b.forced != nil {
		return *b.forced, nil
	}
	if b.abi.IsPAL() {
		return PAL, nil
	}
	return NTSC, nil
}

// StepFrame runs the core for exactly one video frame.
func (b *Bridge) StepFrame() {
	b.mu.Lock()
	b.abi.MainLoop()
	b.mu.Unlock()
}

// DrainAudio pulls n samples per channel out of the core and passes them to fn.
// The slices are views of the core memory and must not be used after fn returns.
func (b *Bridge) DrainAudio(n int, fn func(left, right []float32)) {
	if n > b.audioLength {
		n = b.audioLength
	}
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.abi.CollectAudio(n)
	left, right := b.abi.AudioBuffers(n)
	fn(left[:n:n], right[:n:n])
}

func (b *Bridge) ReportButton(id int, down bool) {
	b.mu.Lock()
	b.abi.ReportButton(id, down)
	b.mu.Unlock()
}

func (b *Bridge) PathExists(path string) bool {
	ok, err := afero.Exists(b.fs, path)
	return err == nil && ok
}

func (b *Bridge) ReadFile(path string) ([]byte, error) { return afero.ReadFile(b.fs, path) }

func (b *Bridge) WriteFile(path string, data []byte) error {
	return afero.WriteFile(b.fs, path, data, 0644)
}

func (b *Bridge) Remove(path string) error {
	if err := b.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SerializeBattery makes the core dump its battery memory into BatteryPath.
func (b *Bridge) SerializeBattery() {
	b.mu.Lock()
	b.abi.SaveSRAM()
	b.mu.Unlock()
}

// Freeze makes the core dump its full state into SnapshotPath.
func (b *Bridge) Freeze() {
	b.mu.Lock()
	b.abi.Freeze()
	b.mu.Unlock()
}

// Unfreeze replaces the core state with the content of SnapshotPath.
func (b *Bridge) Unfreeze() {
	b.mu.Lock()
	b.abi.Unfreeze()
	b.mu.Unlock()
}

func (b *Bridge) SetSurface(handle uintptr) {
	b.mu.Lock()
	b.abi.SetSurface(handle)
	b.mu.Unlock()
}

func (b *Bridge) ShowFPS(v bool) {
	b.mu.Lock()
	b.abi.ShowFPS(v)
	b.mu.Unlock()
}

// HostDir returns the host dir behind the namespace if there is one.
func (b *Bridge) HostDir() (string, bool) {
	if base, ok := b.fs.(*afero.BasePathFs); ok {
		return afero.FullBaseFsPath(base, "/"), true
	}
	return "", false
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.installed = false
	return b.abi.Close()
}
