// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build devicetest

package api

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestWithDevice requires an FL2000 adapter to be attached. It
// streams a constant mid-scale level on all three lanes for a few
// seconds and verifies the stream stays free of underflows.
func TestWithDevice(t *testing.T) {
	if DeviceCount() == 0 {
		t.Skip("no FL2000 device attached")
	}

	dev, err := Open(0)
	if err != nil {
		t.Fatalf("failed to open device: %v", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			t.Errorf("error on close: %v", err)
		}
	}()

	if err := dev.SetSampleRate(100e6); err != nil {
		t.Fatalf("failed to set sample rate: %v", err)
	}
	rate := dev.GetSampleRate()
	if rate < 100e6-1 || rate > 100e6+1 {
		t.Errorf("realized rate: got %d, want 100 MHz within 1 Hz", rate)
	}

	var lastUnderflow uint32
	buf := make([]byte, BufLen)
	for i := range buf {
		buf[i] = 0x80
	}
	cb := func(info *DataInfo) {
		atomic.StoreUint32(&lastUnderflow, info.UnderflowCnt)
		info.RBuf = buf
		info.GBuf = buf
		info.BBuf = buf
	}

	if err := dev.StartTx(cb, nil, 0); err != nil {
		t.Fatalf("failed to start tx: %v", err)
	}

	time.Sleep(10 * time.Second)

	if err := dev.StopTx(); err != nil {
		t.Errorf("failed to stop tx: %v", err)
	}

	if n := atomic.LoadUint32(&lastUnderflow); n != 0 {
		t.Errorf("underflow count: got %d, want 0", n)
	}
}
