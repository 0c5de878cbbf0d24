// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/msiner/fl2k-go/api"
	"github.com/msiner/fl2k-go/helpers/parse"
	"github.com/msiner/fl2k-go/helpers/wav"
	"github.com/msiner/fl2k-go/session"
)

// laneFile feeds one DAC lane from a file. The buffer is reused for
// every callback; the engine copies the bytes before returning.
type laneFile struct {
	f      *os.File
	buf    []byte
	start  int64 // offset of the first sample, non-zero for WAV input
	repeat bool
	signed bool
	done   bool
}

// openLane opens a raw sample file or, if the name ends in .wav, a
// WAV file whose header is validated and skipped. For WAV input the
// header's sample rate is stored in rate if no rate was requested.
func openLane(path string, repeat, unsigned bool, rate *uint32) (*laneFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	l := &laneFile{
		f:      f,
		buf:    make([]byte, api.BufLen),
		repeat: repeat,
		signed: !unsigned,
	}

	if strings.HasSuffix(strings.ToLower(path), ".wav") {
		head, err := wav.ReadHeader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := head.Validate8BitLPCM(); err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		start, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			f.Close()
			return nil, err
		}
		l.start = start
		// WAV 8-bit PCM is unsigned by definition.
		l.signed = false
		if *rate == 0 {
			*rate = head.Fmt.SampleRate
		}
	}

	return l, nil
}

// fill loads the next BufLen samples into the lane buffer. It
// returns false once the file is exhausted and not repeating; the
// final short buffer is zero padded and still played.
func (l *laneFile) fill() bool {
	if l.done {
		return false
	}
	n := 0
	stalled := false
	for n < len(l.buf) {
		m, err := l.f.Read(l.buf[n:])
		n += m
		if m > 0 {
			stalled = false
		}
		if err == nil {
			continue
		}
		// Rewind on EOF when repeating, but give up if the file
		// yields no samples at all.
		if err == io.EOF && l.repeat && !stalled {
			stalled = true
			if _, serr := l.f.Seek(l.start, io.SeekStart); serr == nil {
				continue
			}
		}
		for i := n; i < len(l.buf); i++ {
			l.buf[i] = 0
		}
		l.done = true
		break
	}
	return true
}

func (l *laneFile) close() {
	if l != nil {
		l.f.Close()
	}
}

func fl2kfile() error {
	flags := pflag.NewFlagSet("fl2kfile", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: fl2kfile [FLAGS] [file]

fl2kfile streams 8-bit sample files to the DAC lanes of an FL2000
adapter. A single positional file argument drives the red lane;
lanes can also be assigned explicitly with -R, -G, and -B. Files
ending in .wav must be 8-bit mono PCM and may provide the sample
rate.

Flags:
`,
		))
		flags.PrintDefaults()
	}
	devOpt := flags.Uint32P("device", "d", 0, "Device index")
	rateOpt := flags.StringP("samplerate", "s", "", "Sample rate in Hz with optional k/M/G suffix (default 100M)")
	redOpt := flags.StringP("red", "R", "", "File for the red lane")
	greenOpt := flags.StringP("green", "G", "", "File for the green lane")
	blueOpt := flags.StringP("blue", "B", "", "File for the blue lane")
	unsignedOpt := flags.BoolP("unsigned", "u", false, "Treat raw samples as unsigned")
	repeatOpt := flags.BoolP("repeat", "r", false, "Repeat the input files endlessly")
	bufOpt := flags.Uint32P("buffers", "b", 0, "Number of in-flight transfers (0 = default)")

	// Using ExitOnError
	_ = flags.Parse(os.Args[1:])

	red := *redOpt
	switch flags.NArg() {
	case 0:
		// all lanes via flags
	case 1:
		if red != "" {
			return fmt.Errorf("red lane given both as flag and argument")
		}
		red = flags.Arg(0)
	default:
		flags.Usage()
		return fmt.Errorf("too many arguments provided")
	}
	if red == "" && *greenOpt == "" && *blueOpt == "" {
		flags.Usage()
		return fmt.Errorf("no input files provided")
	}

	var rate uint32
	if *rateOpt != "" {
		parsed, err := parse.ParseSampleRate(*rateOpt)
		if err != nil {
			return err
		}
		rate = parsed
	}

	var lanes [3]*laneFile
	paths := [3]string{red, *greenOpt, *blueOpt}
	for i, path := range paths {
		if path == "" {
			continue
		}
		lane, err := openLane(path, *repeatOpt, *unsignedOpt, &rate)
		if err != nil {
			return err
		}
		defer lane.close()
		lanes[i] = lane
	}

	if rate == 0 {
		rate = 100e6
	}

	lg := log.NewWithOptions(os.Stderr, log.Options{Prefix: "fl2kfile"})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cb := func(info *api.DataInfo) {
		if info.DeviceError {
			return
		}
		active := false
		if l := lanes[0]; l != nil && l.fill() {
			info.RBuf, info.RSigned = l.buf, l.signed
			active = true
		}
		if l := lanes[1]; l != nil && l.fill() {
			info.GBuf, info.GSigned = l.buf, l.signed
			active = true
		}
		if l := lanes[2]; l != nil && l.fill() {
			info.BBuf, info.BSigned = l.buf, l.signed
			active = true
		}
		if !active {
			cancel()
		}
	}

	sess, err := session.NewSession(
		session.WithDeviceIndex(*devOpt),
		session.WithSampleRate(rate),
		session.WithBufferCount(*bufOpt),
		session.WithLogger(lg),
		session.WithTxCallback(cb),
	)
	if err != nil {
		return err
	}

	return sess.Run(ctx)
}

func main() {
	if err := fl2kfile(); err != nil {
		log.Fatal(err)
	}
}
