// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"io"
	"sync/atomic"
)

// DataInfo is the argument handed to the application callback on each
// invocation. It is only valid for the duration of the call; the
// engine copies the lane bytes before it returns to the event loop.
type DataInfo struct {
	// Filled in by the library.

	// Ctx is the opaque context value passed to StartTx.
	Ctx interface{}
	// UnderflowCnt is the total number of underflow replays since
	// streaming started.
	UnderflowCnt uint32
	// Len is the per-lane buffer length in bytes (BufLen).
	Len int
	// UsingZerocopy reports whether the transfer ring uses zero-copy
	// style buffers.
	UsingZerocopy bool
	// DeviceError is set on the final callback after the device has
	// been lost; the application should terminate.
	DeviceError bool

	// Filled in by the application.

	// RBuf, GBuf, and BBuf point at the sample data for this call,
	// one buffer per lane. A nil lane contributes nothing to the
	// output.
	RBuf, GBuf, BBuf []byte
	// RSigned, GSigned, and BSigned declare whether the lane's
	// samples are signed twos-complement rather than unsigned.
	RSigned, GSigned, BSigned bool
}

// TxCallback is invoked by the sample worker every time the engine
// needs Len bytes of samples per lane. The callback runs on the
// sample worker goroutine and is never invoked concurrently with
// itself on the same device. It must not call back into the engine on
// the same device.
type TxCallback func(info *DataInfo)

// StartTx allocates and submits the transfer ring and launches the
// two worker goroutines. bufNum is the number of in-flight bulk
// transfers; zero selects DefaultBufNumber and values above
// MaxBufNumber are capped. The callback is mandatory.
func (d *Device) StartTx(cb TxCallback, ctx interface{}, bufNum uint32) error {
	if d == nil || d.tr == nil || cb == nil {
		return InvalidParam
	}
	if !atomic.CompareAndSwapInt32(&d.asyncStatus, statusInactive, statusRunning) {
		return Busy
	}

	d.cb = cb
	d.cbCtx = ctx
	atomic.StoreUint32(&d.underflowCnt, 0)

	switch {
	case bufNum == 0:
		d.xferNum = DefaultBufNumber
	case bufNum > MaxBufNumber:
		d.lg.Warn("buffer count capped", "requested", bufNum, "using", MaxBufNumber)
		d.xferNum = MaxBufNumber
	default:
		d.xferNum = int(bufNum)
	}

	// Two spare slots can be filled while the others are in flight.
	d.ring = allocRing(d.xferNum+2, XferLen, d.lg)
	if d.ring.zerocopy {
		d.lg.Info("using zero-copy buffers")
	} else {
		d.lg.Info("using userspace buffers")
	}

	st, err := d.tr.OpenStream(XferLen, d.xferNum)
	if err != nil {
		d.ring.free()
		d.ring = nil
		atomic.StoreInt32(&d.asyncStatus, statusInactive)
		return fmt.Errorf("failed to open bulk stream: %w", err)
	}

	d.sampleDone = make(chan struct{})

	go d.usbWorker(st)
	go d.sampleWorker()

	return nil
}

// StopTx cancels all pending asynchronous operations on the device.
// It never blocks; the actual teardown happens on the USB worker, and
// Close waits for it to finish.
func (d *Device) StopTx() error {
	if d == nil {
		return InvalidParam
	}
	// If streaming, cancel gracefully.
	if atomic.CompareAndSwapInt32(&d.asyncStatus, statusRunning, statusCanceling) {
		return nil
	}
	// If called while in a pending state, change the state forcefully.
	if atomic.LoadInt32(&d.asyncStatus) != statusInactive {
		atomic.StoreInt32(&d.asyncStatus, statusInactive)
		return nil
	}
	return Busy
}

// lostDevice records an asynchronous device loss and triggers the
// cancellation path.
func (d *Device) lostDevice(err error) {
	atomic.StoreInt32(&d.devLost, 1)
	d.StopTx()
	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()
	d.lg.Error("transfer failed, canceling", "err", err)
}

// usbWorker is the consumer side of the streaming engine. It keeps
// the bulk pipeline full: a stream Write returns exactly when the
// oldest in-flight transfer has completed, so the body of the loop
// after each Write plays the role the libusb completion callback has
// in the C library.
func (d *Device) usbWorker(st io.WriteCloser) {
	// Submission-order queue of in-flight slots. A slot leaves the
	// queue when its transfer has completed; only then may it become
	// empty again.
	inflight := make([]*xferSlot, 0, d.xferNum+1)

	// Prime the pipeline with the first xferNum buffers. They are
	// zeroed, so the device starts streaming silence immediately;
	// gapless mode stalls if the endpoint ever idles.
	d.mu.Lock()
	prime := d.ring.slots[:d.xferNum]
	for _, s := range prime {
		s.state = bufSubmitted
	}
	d.mu.Unlock()
	for _, s := range prime {
		if _, err := st.Write(s.buf); err != nil {
			d.lostDevice(err)
			break
		}
		inflight = append(inflight, s)
	}

	for d.status() == statusRunning {
		d.mu.Lock()
		next := d.ring.next(bufFilled)
		if next != nil {
			next.state = bufSubmitted
		}
		d.mu.Unlock()

		if next == nil {
			// The just-completing transfer is resubmitted unchanged in
			// any case, as otherwise the device stops to output data
			// and hangs (happens only in the hacked gapless mode
			// without HSYNC and VSYNC). Write blocks until the oldest
			// in-flight transfer completes, so that is inflight[0].
			next = inflight[0]
			atomic.AddUint32(&d.underflowCnt, 1)
		}

		if _, err := st.Write(next.buf); err != nil {
			d.lostDevice(err)
			break
		}

		d.mu.Lock()
		inflight = append(inflight, next)
		if len(inflight) > d.xferNum {
			done := inflight[0]
			inflight = inflight[1:]
			// A replayed slot is queued more than once; it stays
			// submitted until its last copy has completed.
			if !slotInflight(inflight, done) {
				done.state = bufEmpty
			}
		}
		d.cond.Signal()
		d.mu.Unlock()
	}

	// Cancel whatever is still queued, then wake the sample worker so
	// it can observe the state change.
	st.Close()

	d.mu.Lock()
	d.cond.Broadcast()
	d.mu.Unlock()

	// Wait for the sample worker to finish before freeing buffers.
	<-d.sampleDone
	d.ring.free()
	d.ring = nil
	atomic.StoreInt32(&d.asyncStatus, statusInactive)
}

func slotInflight(inflight []*xferSlot, s *xferSlot) bool {
	for _, f := range inflight {
		if f == s {
			return true
		}
	}
	return false
}

// sampleWorker is the producer side of the streaming engine. It
// invokes the application callback, scatters the lane buffers into an
// empty transfer slot, and marks the slot filled with the next
// monotonic sequence number.
func (d *Device) sampleWorker() {
	defer close(d.sampleDone)

	underflows := atomic.LoadUint32(&d.underflowCnt)
	var seq uint64

	for d.status() == statusRunning {
		info := DataInfo{
			Ctx:           d.cbCtx,
			UnderflowCnt:  atomic.LoadUint32(&d.underflowCnt),
			Len:           BufLen,
			UsingZerocopy: d.ring.zerocopy,
		}

		if info.UnderflowCnt > underflows {
			d.lg.Warn("underflow", "skipped", info.UnderflowCnt-underflows)
			underflows = info.UnderflowCnt
		}

		// Let the application fill in the lane buffers.
		d.cb(&info)

		d.mu.Lock()
		s := d.ring.next(bufEmpty)
		if s == nil {
			if d.status() == statusRunning {
				d.cond.Wait()
			}
			// In the meantime, the device might be gone.
			if d.status() != statusRunning {
				d.mu.Unlock()
				break
			}
			s = d.ring.next(bufEmpty)
			if s == nil {
				d.mu.Unlock()
				d.lg.Warn("no free transfer, skipping input buffer")
				continue
			}
		}
		d.mu.Unlock()

		// The slot stays empty while it is converted; only this
		// goroutine moves empty slots, so the buffer is private here.
		convertR(s.buf, info.RBuf, laneBias(info.RSigned))
		convertG(s.buf, info.GBuf, laneBias(info.GSigned))
		convertB(s.buf, info.BBuf, laneBias(info.BSigned))

		d.mu.Lock()
		s.seq = seq
		seq++
		s.state = bufFilled
		d.mu.Unlock()
	}

	// Notify the application if the device is gone.
	if atomic.LoadInt32(&d.devLost) == 1 && d.cb != nil {
		info := DataInfo{
			Ctx:         d.cbCtx,
			DeviceError: true,
		}
		d.cb(&info)
	}
}
