//go:build !darwin && !linux

package core

import (
	"fmt"
	"runtime"
)

func openNative(string, string, int) (ABI, error) {
	return nil, fmt.Errorf("native cores are not supported on %v", runtime.GOOS)
}
