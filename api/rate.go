// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"math"
)

// pllRef is the fixed PLL reference clock in Hz.
const pllRef = 160000000

// pllReg is the PLL configuration register.
const pllReg = 0x802c

// regToFreq converts a packed PLL register value back to the realized
// sample clock in Hz. The integer divisions replicate the hardware
// arithmetic; do not "fix" them into floating point.
func regToFreq(reg uint32) float64 {
	div := reg & 0x3f
	outDiv := (reg >> 8) & 0xf
	frac := (reg >> 16) & 0xf
	mult := (reg >> 20) & 0xf

	sampleClock := float64((pllRef * mult) / div)
	offsDiv := (float64(pllRef) / 5.0) * float64(mult)
	offset := sampleClock / (offsDiv / 2) * 1000000.0
	sampleClock += float64(uint32(offset) * frac)
	return sampleClock / float64(outDiv)
}

// SetSampleRate tunes the pixel clock as close as possible to the
// target frequency in Hz. The realized rate is stored on the handle
// and can be read back with GetSampleRate. A warning is logged when
// the best match is more than 1 Hz off.
func (d *Device) SetSampleRate(targetFreq uint32) error {
	if d == nil || d.tr == nil {
		return InvalidParam
	}

	// Output divider accepts 1-15. It works, but adds lots of phase
	// noise, so it stays at 1.
	const outDiv = uint32(1)

	var resultReg uint32
	lastError := math.MaxFloat64

	// PLL multiplier of 7 works, but has more phase noise. Prefer
	// multipliers 6 and 5.
	for mult := uint32(6); mult >= 3; mult-- {
		for div := uint32(63); div > 1; div-- {
			for frac := uint32(1); frac <= 15; frac++ {
				reg := mult<<20 | frac<<16 | 0x60<<8 | outDiv<<8 | div

				ferr := math.Abs(regToFreq(reg) - float64(targetFreq))
				if ferr < lastError {
					resultReg = reg
					lastError = ferr
				}
			}
		}
	}

	sampleClock := regToFreq(resultReg)
	ferr := sampleClock - float64(targetFreq)
	d.rate = sampleClock

	if math.Abs(ferr) > 1 {
		d.lg.Warn("requested sample rate not possible",
			"requested", targetFreq, "using", sampleClock, "error", ferr)
	} else {
		d.lg.Info("using sample rate", "rate", sampleClock)
	}

	return d.WriteReg(pllReg, resultReg)
}

// GetSampleRate returns the realized sample rate in Hz as stored by
// the last SetSampleRate call, or 0 if the handle is nil or no rate
// has been set.
func (d *Device) GetSampleRate() uint32 {
	if d == nil {
		return 0
	}
	return uint32(d.rate)
}
