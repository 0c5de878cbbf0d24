// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/msiner/fl2k-go/api"
)

// ConfigFn is implemented by a function that can take a Session and
// perform some configuration or return a non-nil error if a problem
// with the configuration is detected.
type ConfigFn func(s *Session) error

// Session stores the configuration of a single transmission session.
// The members can be set directly or by calling NewSession with the
// desired options declared using the WithXYZ() functions that return
// a ConfigFn (e.g. WithSampleRate).
type Session struct {
	Index      uint32
	SampleRate uint32
	BufNum     uint32
	Tx         api.TxCallback
	Logger     *log.Logger
	Transport  api.Transport
}

// NewSession creates a new Session and calls each given ConfigFn with
// it as the argument and then returns the configured Session. It
// returns a non-nil error immediately if any of the ConfigFn
// functions returns a non-nil error. It will call the ConfigFn
// functions in the order they are provided as arguments.
func NewSession(fns ...ConfigFn) (*Session, error) {
	opts := &Session{}
	for _, fn := range fns {
		if err := fn(opts); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

// WithDeviceIndex creates a ConfigFn that selects which attached
// adapter to open. The default is the first one found.
func WithDeviceIndex(index uint32) ConfigFn {
	return func(s *Session) error {
		s.Index = index
		return nil
	}
}

// WithSampleRate creates a ConfigFn that configures the pixel clock
// in Hz. A rate of zero leaves the device at its boot clock.
func WithSampleRate(hz uint32) ConfigFn {
	return func(s *Session) error {
		if s.SampleRate != 0 {
			return errors.New("sample rate already set")
		}
		s.SampleRate = hz
		return nil
	}
}

// WithBufferCount creates a ConfigFn that configures the number of
// in-flight bulk transfers. Zero selects the driver default.
func WithBufferCount(n uint32) ConfigFn {
	return func(s *Session) error {
		s.BufNum = n
		return nil
	}
}

// WithTxCallback creates a ConfigFn that configures the Session to
// use the provided function as the transmit callback. State the
// callback needs can be bound with a closure or method value, so
// there is no separate context parameter.
func WithTxCallback(fn api.TxCallback) ConfigFn {
	return func(s *Session) error {
		if s.Tx != nil {
			return errors.New("tx callback function already set")
		}
		s.Tx = fn
		return nil
	}
}

// WithLogger creates a ConfigFn that replaces the device's default
// diagnostic logger.
func WithLogger(lg *log.Logger) ConfigFn {
	return func(s *Session) error {
		if s.Logger != nil {
			return errors.New("logger already set")
		}
		s.Logger = lg
		return nil
	}
}

// WithTransport creates a ConfigFn that injects a custom Transport
// instead of opening a USB device. This is available for testing via
// dependency injection.
func WithTransport(tr api.Transport) ConfigFn {
	return func(s *Session) error {
		if s.Transport != nil {
			return errors.New("transport already set")
		}
		s.Transport = tr
		return nil
	}
}

// Run runs the configured Session. It opens the device, programs the
// sample rate, and streams until the provided Context is canceled or
// the device reports an asynchronous error. It blocks until the
// device has been torn down again.
func (s *Session) Run(ctx context.Context) error {
	if s.Tx == nil {
		return errors.New("no tx callback configured")
	}

	var (
		dev *api.Device
		err error
	)
	switch {
	case s.Transport != nil:
		dev, err = api.OpenTransport(s.Transport)
	default:
		dev, err = api.Open(s.Index)
	}
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Error("error on close", "err", err)
		}
	}()

	if s.Logger != nil {
		dev.SetLogger(s.Logger)
	}

	if s.SampleRate != 0 {
		if err := dev.SetSampleRate(s.SampleRate); err != nil {
			return fmt.Errorf("failed to set sample rate: %w", err)
		}
	}

	// Watch for the final device-error callback so Run can return
	// early on device loss.
	devErr := make(chan struct{}, 1)
	cb := func(info *api.DataInfo) {
		s.Tx(info)
		if info.DeviceError {
			select {
			case devErr <- struct{}{}:
			default:
			}
		}
	}

	if err := dev.StartTx(cb, nil, s.BufNum); err != nil {
		return fmt.Errorf("failed to start tx: %w", err)
	}

	select {
	case <-ctx.Done():
		if err := dev.StopTx(); err != nil && err != api.Busy {
			return fmt.Errorf("failed to stop tx: %w", err)
		}
		return nil
	case <-devErr:
		// StopTx has already been triggered internally.
		return api.NoDevice
	}
}
