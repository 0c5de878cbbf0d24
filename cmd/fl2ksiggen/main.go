// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/msiner/fl2k-go/api"
	"github.com/msiner/fl2k-go/helpers/parse"
	"github.com/msiner/fl2k-go/helpers/siggen"
	"github.com/msiner/fl2k-go/session"
)

// laneConfig describes one lane of a YAML preset.
type laneConfig struct {
	Waveform  string  `yaml:"waveform"`
	Level     uint8   `yaml:"level"`
	Frequency string  `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// preset is the top-level YAML preset document.
type preset struct {
	SampleRate string                `yaml:"samplerate"`
	Lanes      map[string]laneConfig `yaml:"lanes"`
}

// lane couples a generator function with its buffer and sample type.
type lane struct {
	fn     siggen.LaneFn
	buf    []byte
	signed bool
}

func (c laneConfig) build(sampleRate uint32) (*lane, error) {
	switch c.Waveform {
	case "constant":
		return &lane{
			fn:  siggen.Constant(c.Level),
			buf: make([]byte, api.BufLen),
		}, nil
	case "sine":
		freq, err := parse.ParseFrequency(c.Frequency)
		if err != nil {
			return nil, fmt.Errorf("sine frequency: %w", err)
		}
		amplitude := c.Amplitude
		if amplitude == 0 {
			amplitude = 127
		}
		return &lane{
			fn:     siggen.Sine(float64(sampleRate), freq, amplitude),
			buf:    make([]byte, api.BufLen),
			signed: true,
		}, nil
	case "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown waveform %q", c.Waveform)
}

func fl2ksiggen() error {
	flags := pflag.NewFlagSet("fl2ksiggen", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: fl2ksiggen [FLAGS]

fl2ksiggen drives the DAC lanes of an FL2000 adapter with constant
levels or sine waves. Lanes can be configured with flags or all at
once with a YAML preset file.

Flags:
`,
		))
		flags.PrintDefaults()
	}
	devOpt := flags.Uint32P("device", "d", 0, "Device index")
	rateOpt := flags.StringP("samplerate", "s", "", "Sample rate in Hz with optional k/M/G suffix (default 100M)")
	cfgOpt := flags.StringP("config", "c", "", "YAML preset file")
	rdcOpt := flags.Int("rdc", -1, "Red constant level (0-255, -1 off)")
	gdcOpt := flags.Int("gdc", -1, "Green constant level (0-255, -1 off)")
	bdcOpt := flags.Int("bdc", -1, "Blue constant level (0-255, -1 off)")
	rsineOpt := flags.String("rsine", "", "Red sine frequency")
	gsineOpt := flags.String("gsine", "", "Green sine frequency")
	bsineOpt := flags.String("bsine", "", "Blue sine frequency")
	ampOpt := flags.Float64P("amplitude", "a", 127, "Sine amplitude in DAC counts (1-127)")

	// Using ExitOnError
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 0 {
		flags.Usage()
		return fmt.Errorf("too many arguments provided")
	}

	cfg := preset{Lanes: make(map[string]laneConfig)}
	if *cfgOpt != "" {
		raw, err := os.ReadFile(*cfgOpt)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("%s: %w", *cfgOpt, err)
		}
		if cfg.Lanes == nil {
			cfg.Lanes = make(map[string]laneConfig)
		}
	}

	// Flags override the preset lane by lane.
	laneFlag := func(key string, dc int, sine string) {
		switch {
		case dc >= 0:
			cfg.Lanes[key] = laneConfig{Waveform: "constant", Level: uint8(dc)}
		case sine != "":
			cfg.Lanes[key] = laneConfig{Waveform: "sine", Frequency: sine, Amplitude: *ampOpt}
		}
	}
	laneFlag("r", *rdcOpt, *rsineOpt)
	laneFlag("g", *gdcOpt, *gsineOpt)
	laneFlag("b", *bdcOpt, *bsineOpt)

	rateArg := *rateOpt
	if rateArg == "" {
		rateArg = cfg.SampleRate
	}
	if rateArg == "" {
		rateArg = "100M"
	}
	rate, err := parse.ParseSampleRate(rateArg)
	if err != nil {
		return err
	}

	var lanes [3]*lane
	for i, key := range []string{"r", "g", "b"} {
		l, err := cfg.Lanes[key].build(rate)
		if err != nil {
			return fmt.Errorf("lane %s: %w", key, err)
		}
		lanes[i] = l
	}
	if lanes[0] == nil && lanes[1] == nil && lanes[2] == nil {
		flags.Usage()
		return fmt.Errorf("no lane configured")
	}

	lg := log.NewWithOptions(os.Stderr, log.Options{Prefix: "fl2ksiggen"})

	cb := func(info *api.DataInfo) {
		if info.DeviceError {
			return
		}
		if l := lanes[0]; l != nil {
			l.fn(l.buf)
			info.RBuf, info.RSigned = l.buf, l.signed
		}
		if l := lanes[1]; l != nil {
			l.fn(l.buf)
			info.GBuf, info.GSigned = l.buf, l.signed
		}
		if l := lanes[2]; l != nil {
			l.fn(l.buf)
			info.BBuf, info.BSigned = l.buf, l.signed
		}
	}

	sess, err := session.NewSession(
		session.WithDeviceIndex(*devOpt),
		session.WithSampleRate(rate),
		session.WithLogger(lg),
		session.WithTxCallback(cb),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return sess.Run(ctx)
}

func main() {
	if err := fl2ksiggen(); err != nil {
		log.Fatal(err)
	}
}
