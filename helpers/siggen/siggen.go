// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package siggen provides simple sample sources for driving the DAC
lanes without an input file: constant levels for voltage outputs and
sine waves for test carriers.

A LaneFn keeps its own phase state, so successive calls produce a
continuous waveform across buffer boundaries.
*/
package siggen

import "math"

// LaneFn fills buf with the next samples for one lane. The same
// function must be used for every buffer of a lane so waveform state
// carries over between calls.
type LaneFn func(buf []byte)

// Constant returns a LaneFn that holds the lane at a fixed unsigned
// level. With the default 0.7 Vpp output stage, 0 is 0 V and 255 is
// full scale.
func Constant(level byte) LaneFn {
	return func(buf []byte) {
		for i := range buf {
			buf[i] = level
		}
	}
}

// Sine returns a LaneFn that produces a signed twos-complement sine
// wave of the given frequency at the given sample rate. The
// amplitude is in DAC counts and is clamped to [0, 127]. The lane
// must be marked as signed in the callback data.
func Sine(sampleRate, freq, amplitude float64) LaneFn {
	if amplitude < 0 {
		amplitude = 0
	}
	if amplitude > 127 {
		amplitude = 127
	}
	step := 2 * math.Pi * freq / sampleRate
	var phase float64
	return func(buf []byte) {
		for i := range buf {
			buf[i] = byte(int8(amplitude * math.Sin(phase)))
			phase += step
			if phase >= 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
	}
}
