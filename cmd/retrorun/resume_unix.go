//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

func resumeSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	return ch
}

const resumeHint = "send SIGUSR1 to resume"
