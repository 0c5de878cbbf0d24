// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
fl2ksiggen is a command-line signal generator for FL2000-based
adapters. It drives the R, G, and B DAC lanes with constant levels
or sine waves, which makes the adapter a simple three-channel
voltage source or test carrier generator.

	Usage: fl2ksiggen [FLAGS]

	Each lane can be given a constant DC level (0-255) or a sine
	wave. Lanes without a waveform stay silent. A YAML preset file
	can configure all lanes at once:

		samplerate: 100M
		lanes:
		  r: {waveform: sine, frequency: 7M, amplitude: 100}
		  g: {waveform: constant, level: 128}

	Flags:
	  -d, --device uint32       Device index
	  -s, --samplerate string   Sample rate with optional k/M/G suffix
	  -c, --config string       YAML preset file
	      --rdc int             Red constant level (0-255, -1 off)
	      --gdc int             Green constant level (0-255, -1 off)
	      --bdc int             Blue constant level (0-255, -1 off)
	      --rsine string        Red sine frequency
	      --gsine string        Green sine frequency
	      --bsine string        Blue sine frequency
	  -a, --amplitude float     Sine amplitude in DAC counts (1-127)
*/
package main
