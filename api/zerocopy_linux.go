// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package api

import "golang.org/x/sys/unix"

// allocZerocopyBuf returns a zeroed, page-aligned anonymous mapping
// for one transfer slot. The bulk stream still copies its contents
// into the transport's own transfer buffers on every Write.
func allocZerocopyBuf(length int) ([]byte, error) {
	return unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
}

func freeZerocopyBuf(buf []byte) error {
	return unix.Munmap(buf)
}
