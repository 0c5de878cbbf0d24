// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

/*
Package api provides direct access to FL2000-based USB 3.0 VGA
adapters operated as three-channel 8-bit DACs.

The package mirrors the surface of the libosmo-fl2k C library: device
enumeration and lifecycle, the pixel-clock synthesizer, the streaming
engine, and the I2C bridge to downstream devices behind the adapter's
hardware I2C master. USB access goes through the gousb bindings; the
narrow Transport interface decouples the device core from gousb so
tests can substitute a fake transport.

Applications supply samples through a TxCallback. The engine owns all
transfer buffers; any slice handed to or from the callback is only
valid for the duration of the call and must be copied if it needs to
escape.
*/
package api
