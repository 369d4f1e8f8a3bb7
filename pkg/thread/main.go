// Package thread runs calls on the main OS thread on macOS, where SDL needs it.
package thread

import (
	"runtime"

	"github.com/faiface/mainthread"
)

var pinned = runtime.GOOS == "darwin"

// Run starts f with the main thread queue served, it returns when f does.
func Run(f func()) {
	if !pinned {
		f()
		return
	}
	mainthread.Run(f)
}

// Call runs f on the main thread and returns its error, Run must wrap the caller.
func Call(f func() error) error {
	if !pinned {
		return f()
	}
	return mainthread.CallErr(f)
}
