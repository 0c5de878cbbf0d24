// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"encoding/binary"
	"fmt"
)

// ReadReg reads a 32-bit register from the device's configuration
// space. Register words are little-endian on the wire. A short read
// is logged, but the decoded value is still returned so callers can
// inspect it.
func (d *Device) ReadReg(reg uint16) (uint32, error) {
	if d == nil || d.tr == nil {
		return 0, InvalidParam
	}
	var data [4]byte
	n, err := d.tr.ControlIn(reqRegRead, 0, reg, data[:])
	if err != nil {
		return 0, err
	}
	if n < 4 {
		d.lg.Warn("short read from register", "reg", fmt.Sprintf("0x%04x", reg), "len", n)
	}
	return binary.LittleEndian.Uint32(data[:]), nil
}

// WriteReg writes a 32-bit register in the device's configuration
// space.
func (d *Device) WriteReg(reg uint16, val uint32) error {
	if d == nil || d.tr == nil {
		return InvalidParam
	}
	var data [4]byte
	binary.LittleEndian.PutUint32(data[:], val)
	_, err := d.tr.ControlOut(reqRegWrite, 0, reg, data[:])
	return err
}
