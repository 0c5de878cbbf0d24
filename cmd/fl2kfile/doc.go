// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
fl2kfile is a command-line sample player for FL2000-based adapters.
It streams raw 8-bit sample files, or 8-bit mono PCM WAV files
whose header is validated and skipped, to the R, G, and B DAC lanes.

	Usage: fl2kfile [FLAGS] [file]

	A single positional file argument drives the red lane. Any lane
	can be driven explicitly with the -R, -G, and -B flags. Raw files
	are treated as signed twos-complement samples unless -u is given;
	WAV files are always unsigned 8-bit PCM and may provide the
	sample rate.

	Flags:
	  -d, --device uint32       Device index
	  -s, --samplerate string   Sample rate with optional k/M/G suffix
	  -R, --red string          File for the red lane
	  -G, --green string        File for the green lane
	  -B, --blue string         File for the blue lane
	  -u, --unsigned            Treat raw samples as unsigned
	  -r, --repeat              Repeat the input files endlessly
	  -b, --buffers uint32      Number of in-flight transfers (0 = default)
*/
package main
