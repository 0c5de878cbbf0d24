// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/gousb"
)

// Async status of the streaming engine.
const (
	statusInactive int32 = iota
	statusCanceling
	statusRunning
)

// Device is an open FL2000 adapter. It is created by Open or
// OpenTransport and must be released with Close. All methods are safe
// to call with a nil receiver and return InvalidParam (or a zero
// value) in that case.
type Device struct {
	tr Transport
	lg *log.Logger

	// mu serializes all transfer ring state transitions; cond wakes
	// the sample worker when a slot becomes empty.
	mu   sync.Mutex
	cond *sync.Cond
	ring *ring

	cb      TxCallback
	cbCtx   interface{}
	xferNum int

	rate float64 // realized sample rate in Hz

	asyncStatus  int32
	devLost      int32
	underflowCnt uint32

	sampleDone chan struct{}
}

func defaultLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Prefix: "fl2k"})
}

// DeviceCount returns the number of attached FL2000 adapters.
func DeviceCount() uint32 {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var count uint32
	// The opener never accepts, so no device is actually opened.
	_, _ = ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if findKnownDevice(uint16(desc.Vendor), uint16(desc.Product)) != nil {
			count++
		}
		return false
	})
	return count
}

// DeviceName returns the human-readable name of the index-th attached
// adapter or an empty string if there is no such device.
func DeviceName(index uint32) string {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var count uint32
	name := ""
	_, _ = ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		dev := findKnownDevice(uint16(desc.Vendor), uint16(desc.Product))
		if dev == nil {
			return false
		}
		if count == index {
			name = dev.name
		}
		count++
		return false
	})
	return name
}

// Open opens the index-th attached adapter, claims its bulk
// interface, and runs the boot register sequence. The returned Device
// must be released with Close.
func Open(index uint32) (*Device, error) {
	lg := defaultLogger()

	tr, err := openUSBTransport(index, lg)
	if err != nil {
		return nil, err
	}

	dev, err := OpenTransport(tr)
	if err != nil {
		tr.Close()
		return nil, err
	}
	dev.lg = lg
	lg.Info("opened device", "index", index)
	return dev, nil
}

// OpenTransport creates a Device on top of an already-open Transport
// and runs the boot register sequence. It is the injection point for
// tests and custom transports. The caller keeps ownership of tr until
// OpenTransport succeeds; afterwards Close releases it.
func OpenTransport(tr Transport) (*Device, error) {
	if tr == nil {
		return nil, InvalidParam
	}
	d := &Device{
		tr: tr,
		lg: defaultLogger(),
	}
	d.cond = sync.NewCond(&d.mu)
	atomic.StoreInt32(&d.devLost, 1)
	if err := d.initDevice(); err != nil {
		return nil, err
	}
	atomic.StoreInt32(&d.devLost, 0)
	return d, nil
}

// SetLogger replaces the diagnostic logger. It must be called before
// any streaming starts.
func (d *Device) SetLogger(lg *log.Logger) {
	if d == nil || lg == nil {
		return
	}
	d.lg = lg
}

// initDevice runs the register sequence that configures blanking and
// VSYNC behavior and puts the DAC clock at its lowest setting so the
// device does not underrun before the application pushes samples.
func (d *Device) initDevice() error {
	if d == nil {
		return InvalidParam
	}
	seq := []struct {
		reg uint16
		val uint32
	}{
		{0x8020, 0xdf0000cc},
		// Lowest DAC clock possible to avoid underrun during init.
		{0x802c, 0x00416f3f},
		{0x8048, 0x7ffb8004},
		{0x803c, 0xd701004d},
		{0x8004, 0x0000031c},
		{0x8004, 0x0010039d},
		{0x8008, 0x07800898},
		{0x801c, 0x00000000},
		{0x0070, 0x04186085},
		// Blanking magic.
		{0x8008, 0xfeff0780},
		{0x800c, 0x0000f001},
		// VSYNC magic.
		{0x8010, 0x0400042a},
		{0x8014, 0x0010002d},
		{0x8004, 0x00000002},
	}
	for _, w := range seq {
		if err := d.WriteReg(w.reg, w.val); err != nil {
			return fmt.Errorf("init register 0x%04x: %w", w.reg, err)
		}
	}
	return nil
}

// deinitDevice is a placeholder for powering down the DACs and PLL
// and putting the device in reset.
func (d *Device) deinitDevice() error {
	if d == nil {
		return InvalidParam
	}
	return nil
}

// Close blocks until all asynchronous operations have completed, runs
// the deinit sequence, and releases the USB transport. If the device
// has been lost, Close neither waits for the streaming workers nor
// runs the deinit sequence; it only releases the transport.
func (d *Device) Close() error {
	if d == nil || d.tr == nil {
		return InvalidParam
	}
	if atomic.LoadInt32(&d.devLost) == 0 {
		for atomic.LoadInt32(&d.asyncStatus) != statusInactive {
			time.Sleep(100 * time.Millisecond)
		}
		d.deinitDevice()
	}
	return d.tr.Close()
}

func (d *Device) status() int32 {
	return atomic.LoadInt32(&d.asyncStatus)
}
