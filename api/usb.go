// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/gousb"
)

const (
	ctrlIn  = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
	ctrlOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice

	reqRegRead  = 0x40
	reqRegWrite = 0x41

	ctrlTimeout = 300 * time.Millisecond

	bulkOutEndpoint = 0x01

	// Interface 3 is the mass storage interface of adapters that
	// carry an SPI flash for the Windows driver.
	mscInterface = 3
)

// Transport is the slice of USB access the device core needs. It is
// implemented by the gousb-backed transport that Open creates. There
// are two reasons for defining this interface.
//  1. It keeps the device core free of gousb types, so the register,
//     clock, and streaming logic can be read without USB plumbing.
//  2. It allows the core to be tested against a fake transport; see
//     OpenTransport.
type Transport interface {
	// ControlIn performs a vendor control IN transfer.
	ControlIn(request uint8, val, idx uint16, data []byte) (int, error)

	// ControlOut performs a vendor control OUT transfer.
	ControlOut(request uint8, val, idx uint16, data []byte) (int, error)

	// OpenStream opens a bulk OUT stream on the data endpoint that
	// keeps up to count transfers of size bytes in flight. A Write
	// blocks while all count transfers are busy and returns once the
	// oldest in-flight transfer has completed.
	OpenStream(size, count int) (io.WriteCloser, error)

	// Close releases all claimed interfaces and closes the device.
	Close() error
}

// usbTransport is the production Transport backed by gousb.
type usbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	msc  *gousb.Interface
}

// openUSBTransport locates the index-th known adapter, opens it, and
// claims its data interface.
func openUSBTransport(index uint32, lg *log.Logger) (*usbTransport, error) {
	ctx := gousb.NewContext()

	var count uint32
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if findKnownDevice(uint16(desc.Vendor), uint16(desc.Product)) == nil {
			return false
		}
		count++
		return count-1 == index
	})
	if err != nil {
		for _, dev := range devs {
			dev.Close()
		}
		ctx.Close()
		if errors.Is(err, gousb.ErrorAccess) {
			lg.Error("please fix the device permissions, e.g. by installing the udev rules file")
		}
		return nil, fmt.Errorf("usb open error: %w", err)
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, NotFound
	}
	t := &usbTransport{ctx: ctx, dev: devs[0]}
	// The opener matches exactly one index, but be safe.
	for _, dev := range devs[1:] {
		dev.Close()
	}

	t.dev.ControlTimeout = ctrlTimeout

	if err := t.dev.SetAutoDetach(true); err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to enable kernel driver detach: %w", err)
	}

	cfg, err := t.dev.Config(1)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to select config 1: %w", err)
	}
	t.cfg = cfg

	// If the adapter has an SPI flash for the Windows driver, the
	// kernel mass storage driver must be detached before the data
	// path can be used. Claiming the interface forces the detach; the
	// claim is held until Close so the driver does not reattach.
	if msc, err := cfg.Interface(mscInterface, 0); err == nil {
		lg.Debug("detached kernel mass storage driver", "interface", mscInterface)
		t.msc = msc
	}

	intf, err := cfg.Interface(0, 1)
	if err != nil {
		lg.Warn("failed to switch interface 0 to altsetting 1, trying to use interface 1")
		intf, err = cfg.Interface(1, 0)
		if err != nil {
			t.Close()
			return nil, fmt.Errorf("could not claim interface 1: %w", err)
		}
	}
	t.intf = intf

	return t, nil
}

func (t *usbTransport) ControlIn(request uint8, val, idx uint16, data []byte) (int, error) {
	return t.dev.Control(ctrlIn, request, val, idx, data)
}

func (t *usbTransport) ControlOut(request uint8, val, idx uint16, data []byte) (int, error) {
	return t.dev.Control(ctrlOut, request, val, idx, data)
}

func (t *usbTransport) OpenStream(size, count int) (io.WriteCloser, error) {
	ep, err := t.intf.OutEndpoint(bulkOutEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open OUT endpoint: %w", err)
	}
	return ep.NewStream(size, count)
}

func (t *usbTransport) Close() error {
	if t.msc != nil {
		t.msc.Close()
		t.msc = nil
	}
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		err := t.ctx.Close()
		t.ctx = nil
		return err
	}
	return nil
}
