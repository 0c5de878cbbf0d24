// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"bytes"

	"github.com/charmbracelet/log"
)

// bufState is the state of one transfer slot. Exactly one goroutine
// mutates a slot's state at any moment; all transitions happen under
// the device ring mutex.
type bufState int32

const (
	bufEmpty bufState = iota
	bufSubmitted
	bufFilled
)

// xferSlot is one entry in the transfer ring: a transfer buffer, the
// sequence number assigned when the sample worker filled it, and its
// state.
type xferSlot struct {
	buf    []byte
	seq    uint64
	state  bufState
	mapped bool
}

// ring is a fixed-size ordered pool of transfer slots. xferNum slots
// are in flight at steady state; two spare slots let the sample
// worker fill while the USB worker drains.
type ring struct {
	slots    []*xferSlot
	zerocopy bool
}

// allocRing allocates num slots with length-byte buffers. Kernel-
// mappable zero-copy style buffers are preferred; if any allocation
// fails or fails the consistency check, every slot falls back to
// plain userspace allocation. The decision is made at runtime, never
// at build time.
func allocRing(num, length int, lg *log.Logger) *ring {
	r := &ring{
		slots:    make([]*xferSlot, num),
		zerocopy: true,
	}
	for i := range r.slots {
		r.slots[i] = &xferSlot{}
	}

	lg.Info("allocating zero-copy buffers", "count", num)

	for i, s := range r.slots {
		buf, err := allocZerocopyBuf(length)
		if err != nil {
			lg.Warn("failed to allocate zero-copy buffer, falling back to buffers in userspace",
				"transfer", i, "err", err)
			r.zerocopy = false
			break
		}
		// A mapping affected by the kernel mmap bug points at random
		// memory instead of zeroed pages: verify the buffer is zeroed
		// and self-consistent before trusting it.
		if buf[0] != 0 || !bytes.Equal(buf[:length-1], buf[1:]) {
			freeZerocopyBuf(buf)
			lg.Warn("detected kernel mmap bug, falling back to buffers in userspace")
			r.zerocopy = false
			break
		}
		s.buf = buf
		s.mapped = true
	}

	if !r.zerocopy {
		// Free the partial zero-copy allocation before switching all
		// slots to userspace buffers.
		for _, s := range r.slots {
			if s.mapped {
				freeZerocopyBuf(s.buf)
				s.mapped = false
			}
			s.buf = make([]byte, length)
		}
	}

	return r
}

// free releases every slot buffer. The ring must not be used after
// free returns.
func (r *ring) free() {
	if r == nil {
		return
	}
	for _, s := range r.slots {
		if s.mapped {
			freeZerocopyBuf(s.buf)
			s.mapped = false
		}
		s.buf = nil
	}
}

// next returns a slot in the requested state or nil if there is none.
// For bufEmpty the first match is returned. For bufFilled the match
// with the smallest sequence number is returned; this is what gives
// the engine FIFO delivery. The caller must hold the ring mutex.
func (r *ring) next(state bufState) *xferSlot {
	var best *xferSlot
	for _, s := range r.slots {
		if s.state != state {
			continue
		}
		if state == bufEmpty {
			return s
		}
		if best == nil || s.seq < best.seq {
			best = s
		}
	}
	return best
}
