package beep

import (
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

const sampleRate = 44100

// cue describes a decaying sine tick. A non-zero gap plays it twice.
type cue struct {
	freq     float64
	volume   float64
	decay    float64
	duration float64
	gap      float64
}

var (
	// dispatch started: high pitch, short
	startCue = cue{freq: 1200, volume: 0.5, decay: 60, duration: 0.2}
	// text typed: medium pitch
	doneCue = cue{freq: 900, volume: 0.5, decay: 40, duration: 0.2}
	// failure: low pitch double-beep
	errorCue = cue{freq: 350, volume: 0.6, decay: 30, duration: 0.08, gap: 0.05}
)

// samples renders c as mono 16-bit PCM.
func (c cue) samples(rate int) []int16 {
	tick := func() []int16 {
		n := int(float64(rate) * c.duration)
		out := make([]int16, n)
		for i := range n {
			t := float64(i) / float64(rate)
			envelope := math.Exp(-t * c.decay)
			out[i] = int16(math.Sin(2*math.Pi*c.freq*t) * 32767 * c.volume * envelope)
		}
		return out
	}
	s := tick()
	if c.gap == 0 {
		return s
	}
	gap := make([]int16, int(float64(rate)*c.gap))
	out := make([]int16, 0, 2*len(s)+len(gap))
	out = append(out, s...)
	out = append(out, gap...)
	return append(out, s...)
}

func PlayStart() { play(startCue) }
func PlayEnd()   { play(doneCue) }
func PlayError() { play(errorCue) }

func play(c cue) {
	if disabled.Load() {
		return
	}
	playCue(c)
}
