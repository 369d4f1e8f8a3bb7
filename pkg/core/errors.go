package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotInstalled     = errors.New("no cartridge installed")
	ErrAlreadyInstalled = errors.New("cartridge already installed")
)

// ModuleLoadError means the foreign core could not be fetched, opened or bound.
type ModuleLoadError struct {
	Path string
	Err  error
}

func (e *ModuleLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("core load failed: %v", e.Err)
	}
	return fmt.Sprintf("core load failed [%v]: %v", e.Path, e.Err)
}

func (e *ModuleLoadError) Unwrap() error { return e.Err }

// InvalidRomError rejects a cartridge before it reaches the core.
type InvalidRomError struct {
	Size int
}

func (e *InvalidRomError) Error() string {
	return fmt.Sprintf("the size is invalid (%d bytes)", e.Size)
}
