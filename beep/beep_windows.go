//go:build windows

package beep

import "github.com/gen2brain/beeep"

func Init() {}

// playCue uses the system speaker; the decay envelope is not reproduced.
func playCue(c cue) {
	ms := int(c.duration * 1000)
	go func() {
		beeep.Beep(c.freq, ms)
		if c.gap > 0 {
			beeep.Beep(c.freq, ms)
		}
	}()
}
