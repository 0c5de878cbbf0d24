// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/require"
)

const testBufNum = 4

// startStreaming opens a fake device and starts a transmission with
// the given callback. The fake stream completes transfers on its own
// at the given interval, standing in for the hardware.
func startStreaming(t *testing.T, cb TxCallback, drain time.Duration) (*Device, *fakeTransport) {
	t.Helper()
	dev, tr := openFakeDevice(t)
	require.NoError(t, dev.StartTx(cb, nil, testBufNum))
	tr.stream.autoComplete(drain)
	return dev, tr
}

func TestStartTxInvalidParams(t *testing.T) {
	t.Parallel()

	dev, _ := openFakeDevice(t)
	if err := dev.StartTx(nil, nil, 0); err != InvalidParam {
		t.Errorf("StartTx without callback: got %v, want %v", err, InvalidParam)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()

	var calls uint32
	buf := make([]byte, BufLen)
	cb := func(info *DataInfo) {
		atomic.AddUint32(&calls, 1)
		require.Equal(t, BufLen, info.Len)
		info.RBuf = buf
	}

	dev, tr := startStreaming(t, cb, time.Millisecond)

	// Starting twice must be refused.
	require.Equal(t, Busy, dev.StartTx(cb, nil, 0))

	require.Eventually(t, func() bool {
		return atomic.LoadUint32(&calls) >= 3
	}, 5*time.Second, time.Millisecond, "callback never ran")

	// First stop succeeds, Close drains the workers, a second stop
	// reports that nothing is running.
	require.NoError(t, dev.StopTx())
	require.NoError(t, dev.Close())
	require.Equal(t, Busy, dev.StopTx())

	require.Equal(t, statusInactive, dev.status())
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.True(t, tr.closed)
}

func TestStreamTransferGeometry(t *testing.T) {
	t.Parallel()

	var calls uint32
	cb := func(info *DataInfo) {
		atomic.AddUint32(&calls, 1)
	}

	dev, tr := startStreaming(t, cb, time.Millisecond)

	require.Eventually(t, func() bool {
		return tr.stream.writeCount() >= testBufNum+2
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, dev.StopTx())
	require.NoError(t, dev.Close())

	tr.stream.mu.Lock()
	defer tr.stream.mu.Unlock()
	require.GreaterOrEqual(t, len(tr.stream.lens), testBufNum)
	for i, n := range tr.stream.lens {
		require.Equalf(t, XferLen, n, "transfer %d length", i)
	}
}

func TestStreamFIFOOrder(t *testing.T) {
	t.Parallel()

	// Stamp each invocation into the first sample of the R lane; the
	// interleave puts it at byte 6 of the first pixel group.
	var calls uint32
	buf := make([]byte, BufLen)
	cb := func(info *DataInfo) {
		n := atomic.AddUint32(&calls, 1)
		// Stop stamping before the marker can wrap around; later
		// repeats collapse like underflow replays do.
		if n <= 200 {
			buf[0] = byte(n)
		}
		info.RBuf = buf
	}

	dev, tr := startStreaming(t, cb, time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadUint32(&calls) >= 20
	}, 10*time.Second, time.Millisecond)

	require.NoError(t, dev.StopTx())
	require.NoError(t, dev.Close())

	// Collect the first emission of every marker. Zero markers are
	// the primed buffers and repeated markers are underflow replays
	// of already-streamed content; first emissions must appear in
	// fill order.
	seen := make(map[byte]bool)
	var firsts []byte
	for _, p := range tr.stream.writePrefixes() {
		m := p[6]
		if m == 0 || seen[m] {
			continue
		}
		seen[m] = true
		firsts = append(firsts, m)
	}
	require.NotEmpty(t, firsts)
	for i := 1; i < len(firsts); i++ {
		require.Greaterf(t, firsts[i], firsts[i-1],
			"buffers emitted out of order: %v", firsts)
	}
}

func TestStreamUnderflowReplay(t *testing.T) {
	t.Parallel()

	// The callback stalls once; the engine must keep the bulk pipe
	// busy by replaying the previous buffer and report the underflow
	// on a later invocation.
	var (
		calls     uint32
		underflow uint32
	)
	buf := make([]byte, BufLen)
	cb := func(info *DataInfo) {
		n := atomic.AddUint32(&calls, 1)
		if n == 5 {
			time.Sleep(300 * time.Millisecond)
		}
		if info.UnderflowCnt > 0 {
			atomic.StoreUint32(&underflow, info.UnderflowCnt)
		}
		info.RBuf = buf
	}

	dev, _ := startStreaming(t, cb, time.Millisecond)

	require.Eventually(t, func() bool {
		return atomic.LoadUint32(&underflow) > 0
	}, 10*time.Second, time.Millisecond, "no underflow reported")

	require.NoError(t, dev.StopTx())
	require.NoError(t, dev.Close())
}

func TestStreamDeviceLost(t *testing.T) {
	t.Parallel()

	devErr := make(chan struct{}, 1)
	cb := func(info *DataInfo) {
		if info.DeviceError {
			select {
			case devErr <- struct{}{}:
			default:
			}
		}
	}

	dev, tr := openFakeDevice(t)
	require.NoError(t, dev.StartTx(cb, nil, testBufNum))
	tr.stream.mu.Lock()
	tr.stream.failAfter = testBufNum + 2
	tr.stream.failErr = gousb.ErrorNoDevice
	tr.stream.mu.Unlock()
	tr.stream.autoComplete(time.Millisecond)

	select {
	case <-devErr:
	case <-time.After(10 * time.Second):
		t.Fatal("device-error callback never delivered")
	}

	require.Eventually(t, func() bool {
		return dev.status() == statusInactive
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, dev.Close())
}

func TestStreamDefaultBufferCount(t *testing.T) {
	t.Parallel()

	dev, tr := openFakeDevice(t)
	require.NoError(t, dev.StartTx(func(*DataInfo) {}, nil, 0))
	tr.stream.autoComplete(time.Millisecond)

	// buf_num 0 selects the default of 4 in-flight transfers plus
	// two spares.
	dev.mu.Lock()
	slots := len(dev.ring.slots)
	dev.mu.Unlock()
	require.Equal(t, DefaultBufNumber+2, slots)
	require.Equal(t, DefaultBufNumber, tr.count)

	require.NoError(t, dev.StopTx())
	require.NoError(t, dev.Close())
}
