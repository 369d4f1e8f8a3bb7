package main

import "os"

func resumeSignal() <-chan os.Signal { return nil }

const resumeHint = "restart to resume"
