// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"testing"
	"time"
)

func TestI2CRead(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)

	tr.mu.Lock()
	// First control read returns the idle word, the completion poll
	// then reports done with a clear slave-error nibble.
	tr.queue[i2cCtrlReg] = []uint32{0x40000000, 0x80000000}
	tr.regs[i2cReadReg] = 0x04030201
	tr.mu.Unlock()

	var data [4]byte
	if err := dev.I2CRead(0x50, 0x10, data[:]); err != nil {
		t.Fatalf("I2CRead: %v", err)
	}
	if !bytes.Equal(data[:], []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("payload: got %v, want little-endian 0x04030201", data)
	}

	// The trigger word must select read mode and clear the repeat
	// bit (bit 30).
	want := uint32(1<<28 | 0x10<<8 | 1<<7 | 0x50)
	writes := tr.writeLog()
	last := writes[len(writes)-1]
	if last.reg != i2cCtrlReg || last.val != want {
		t.Errorf("trigger write: got %#x=%#08x, want %#x=%#08x",
			last.reg, last.val, i2cCtrlReg, want)
	}
}

func TestI2CWrite(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)

	tr.mu.Lock()
	tr.queue[i2cCtrlReg] = []uint32{0, 0x80000000}
	tr.mu.Unlock()

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := dev.I2CWrite(0x2c, 0x04, payload); err != nil {
		t.Fatalf("I2CWrite: %v", err)
	}

	writes := tr.writeLog()
	if len(writes) < 2 {
		t.Fatalf("expected payload and trigger writes, got %d", len(writes))
	}
	data := writes[len(writes)-2]
	if data.reg != i2cWriteReg || data.val != 0xefbeadde {
		t.Errorf("payload write: got %#x=%#08x, want %#x=0xefbeadde",
			data.reg, data.val, i2cWriteReg)
	}
	trig := writes[len(writes)-1]
	want := uint32(1<<28 | 0x04<<8 | 0x2c)
	if trig.reg != i2cCtrlReg || trig.val != want {
		t.Errorf("trigger write: got %#x=%#08x, want %#x=%#08x",
			trig.reg, trig.val, i2cCtrlReg, want)
	}
}

func TestI2CReadSlaveNak(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)

	tr.mu.Lock()
	// Completion with a non-zero slave-error nibble.
	tr.queue[i2cCtrlReg] = []uint32{0, 0x81000000}
	tr.mu.Unlock()

	var data [4]byte
	if err := dev.I2CRead(0x50, 0, data[:]); err != NotFound {
		t.Errorf("missing slave: got %v, want %v", err, NotFound)
	}
}

func TestI2CReadTimeout(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)

	tr.mu.Lock()
	tr.regs[i2cCtrlReg] = 0 // never reports completion
	tr.mu.Unlock()

	start := time.Now()
	var data [4]byte
	if err := dev.I2CRead(0x50, 0, data[:]); err != Timeout {
		t.Errorf("poll exhaustion: got %v, want %v", err, Timeout)
	}
	// 10 polls at 10 ms each.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v, want about 100ms", elapsed)
	}
}

func TestI2CInvalidParams(t *testing.T) {
	t.Parallel()

	var nilDev *Device
	var data [4]byte
	if err := nilDev.I2CRead(0x50, 0, data[:]); err != InvalidParam {
		t.Errorf("nil device: got %v, want %v", err, InvalidParam)
	}

	dev, _ := openFakeDevice(t)
	if err := dev.I2CRead(0x50, 0, data[:2]); err != InvalidParam {
		t.Errorf("short buffer: got %v, want %v", err, InvalidParam)
	}
	if err := dev.I2CWrite(0x50, 0, data[:2]); err != InvalidParam {
		t.Errorf("short buffer: got %v, want %v", err, InvalidParam)
	}
}
