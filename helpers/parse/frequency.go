// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFrequency is a helper function to parse a frequency value
// specified as a command-line argument. For convenience, valid
// arguments can have a suffix of k, K, m, M, g, or G to indicate
// the value is in kHz, MHz, or GHz respectively (e.g. 14.318M). Any
// text before such a suffix must represent a valid floating point
// value as parsed by strconv.ParseFloat(). The return value is the
// parsed frequency in Hz.
func ParseFrequency(arg string) (float64, error) {
	var mult float64 = 1
	arg = strings.ToLower(arg)
	switch {
	case arg == "":
		// do nothing
	case strings.HasSuffix(arg, "k"):
		mult = 1000
		arg = strings.TrimSuffix(arg, "k")
	case strings.HasSuffix(arg, "m"):
		mult = 1000 * 1000
		arg = strings.TrimSuffix(arg, "m")
	case strings.HasSuffix(arg, "g"):
		mult = 1000 * 1000 * 1000
		arg = strings.TrimSuffix(arg, "g")
	}
	freq, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, err
	}
	return freq * mult, nil
}

// ParseSampleRate is a wrapper around ParseFrequency that also
// guarantees the result is a rate the FL2000 pixel-clock synthesizer
// can approach. Specifically, it will return an error if the rate is
// less than 8 MHz or greater than 480 MHz. Note that rates above
// roughly 157 MHz exceed what USB 3.0 hosts sustain in practice.
func ParseSampleRate(arg string) (uint32, error) {
	freq, err := ParseFrequency(arg)
	if err != nil {
		return 0, err
	}
	if freq < 8e6 || freq > 480e6 {
		return 0, fmt.Errorf("invalid sample rate; got %f Hz, want 8MHz<=Rate<=480MHz", freq)
	}
	return uint32(freq), nil
}
