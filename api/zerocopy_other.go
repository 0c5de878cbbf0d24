// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package api

import "errors"

// Zero-copy style buffers are only available on Linux. Other
// platforms always use the userspace fallback.

func allocZerocopyBuf(length int) ([]byte, error) {
	return nil, errors.New("zero-copy buffers not supported on this platform")
}

func freeZerocopyBuf(buf []byte) error {
	return nil
}
