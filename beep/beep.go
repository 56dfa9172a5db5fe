// Package beep plays short audible cues when recording starts, stops or
// fails to start.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

type Cue int

const (
	Start Cue = iota
	End
	Error
)

const sampleRate = 44100

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

var (
	cueOnce    sync.Once
	cueSamples map[Cue][]int16
)

func samples(c Cue) []int16 {
	cueOnce.Do(func() {
		cueSamples = map[Cue][]int16{
			// 200ms tails let the output buffer fill before the stream drains
			Start: tick(sampleRate, 1200, 0.2, 0.5, 60),
			End:   tick(sampleRate, 900, 0.2, 0.5, 40),
			Error: doubleBeep(sampleRate, 350, 0.08, 0.05, 0.6, 30),
		}
	})
	return cueSamples[c]
}

// Play emits c asynchronously. It is a no-op after Disable or where no
// playback backend exists.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	go play(samples(c))
}

// tick synthesizes a mono exponentially decaying sine.
func tick(rate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(rate) * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / float64(rate)
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

func doubleBeep(rate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(rate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(rate)*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}
