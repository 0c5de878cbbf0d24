// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func openFakeDevice(t *testing.T) (*Device, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	dev, err := OpenTransport(tr)
	if err != nil {
		t.Fatalf("failed to open fake transport: %v", err)
	}
	dev.SetLogger(log.New(io.Discard))
	return dev, tr
}

func TestRegisterRoundTrip(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)

	if err := dev.WriteReg(0x8048, 0x7ffb8004); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	got, err := dev.ReadReg(0x8048)
	if err != nil {
		t.Fatalf("ReadReg: %v", err)
	}
	if got != 0x7ffb8004 {
		t.Errorf("register value: got %#08x, want 0x7ffb8004", got)
	}

	writes := tr.writeLog()
	last := writes[len(writes)-1]
	if last.reg != 0x8048 || last.val != 0x7ffb8004 {
		t.Errorf("recorded write: got %#x=%#08x, want 0x8048=0x7ffb8004", last.reg, last.val)
	}
}

func TestRegisterNilDevice(t *testing.T) {
	t.Parallel()

	var dev *Device
	if _, err := dev.ReadReg(0x8020); err != InvalidParam {
		t.Errorf("ReadReg on nil device: got %v, want %v", err, InvalidParam)
	}
	if err := dev.WriteReg(0x8020, 0); err != InvalidParam {
		t.Errorf("WriteReg on nil device: got %v, want %v", err, InvalidParam)
	}
}

func TestRegisterTransportError(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)
	tr.mu.Lock()
	tr.ctrlErr = Timeout
	tr.mu.Unlock()

	if _, err := dev.ReadReg(0x8020); err != Timeout {
		t.Errorf("ReadReg: got %v, want %v", err, Timeout)
	}
	if err := dev.WriteReg(0x8020, 1); err != Timeout {
		t.Errorf("WriteReg: got %v, want %v", err, Timeout)
	}
}
