//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The native hotkey backends need the main thread for their event loop.
func main() {
	code := 0
	mainthread.Init(func() { code = run() })
	os.Exit(code)
}
