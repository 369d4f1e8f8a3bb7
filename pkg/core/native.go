//go:build darwin || linux

package core

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/ebitengine/purego"
)

// native is a core shared library bound without cgo.
type native struct {
	handle      uintptr
	workdir     string
	audioLength int

	run          func(path string, port int32)
	mainloop     func()
	collectAudio func(samples int32)
	leftBuffer   func() *float32
	rightBuffer  func() *float32
	reportButton func(id int32, down int32)
	isPal        func() int32
	forcePal     func(v int32)
	autoSaveSRAM func()
	freeze       func()
	unfreeze     func()
	showFps      func(v int32)
	setSurface   func(handle uintptr)
}

func openNative(lib, workdir string, audioLength int) (ABI, error) {
	h, err := purego.Dlopen(lib, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}
	n := &native{handle: h, workdir: workdir, audioLength: audioLength}

	required := []struct {
		name string
		fn   any
	}{
		{"run", &n.run},
		{"mainloop", &n.mainloop},
		{"collect_audio", &n.collectAudio},
		{"get_left_audio_buffer", &n.leftBuffer},
		{"get_right_audio_buffer", &n.rightBuffer},
		{"report_button", &n.reportButton},
		{"is_pal", &n.isPal},
		{"force_pal", &n.forcePal},
		{"S9xAutoSaveSRAM", &n.autoSaveSRAM},
		{"freeze", &n.freeze},
		{"unfreeze", &n.unfreeze},
	}
	for _, s := range required {
		sym, err := purego.Dlsym(h, s.name)
		if err != nil {
			_ = purego.Dlclose(h)
			return nil, fmt.Errorf("lib function not found: %v", s.name)
		}
		purego.RegisterFunc(s.fn, sym)
	}

	if sym, err := purego.Dlsym(h, "show_fps"); err == nil {
		purego.RegisterFunc(&n.showFps, sym)
	}
	if sym, err := purego.Dlsym(h, "set_surface"); err == nil {
		purego.RegisterFunc(&n.setSurface, sym)
	}
	return n, nil
}

func (n *native) Run(path string, port int) {
	n.run(filepath.Join(n.workdir, filepath.FromSlash(path)), int32(port))
}

func (n *native) MainLoop()                { n.mainloop() }
func (n *native) CollectAudio(samples int) { n.collectAudio(int32(samples)) }

func (n *native) AudioBuffers(samples int) (left, right []float32) {
	if samples > n.audioLength {
		samples = n.audioLength
	}
	left = unsafe.Slice(n.leftBuffer(), n.audioLength)[:samples]
	right = unsafe.Slice(n.rightBuffer(), n.audioLength)[:samples]
	return
}

func (n *native) ReportButton(id int, down bool) { n.reportButton(int32(id), b2i(down)) }
func (n *native) IsPAL() bool                    { return n.isPal() == 1 }
func (n *native) ForcePAL(v bool)                { n.forcePal(b2i(v)) }
func (n *native) SaveSRAM()                      { n.autoSaveSRAM() }
func (n *native) Freeze()                        { n.freeze() }
func (n *native) Unfreeze()                      { n.unfreeze() }

func (n *native) ShowFPS(v bool) {
	if n.showFps != nil {
		n.showFps(b2i(v))
	}
}

func (n *native) SetSurface(handle uintptr) {
	if n.setSurface != nil {
		n.setSurface(handle)
	}
}

func (n *native) Close() error {
	if n.handle == 0 {
		return nil
	}
	err := purego.Dlclose(n.handle)
	n.handle = 0
	return err
}

func b2i(v bool) int32 {
	if v {
		return 1
	}
	return 0
}
