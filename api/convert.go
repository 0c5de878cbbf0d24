// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

// The DAC consumes samples in 24-byte pixel groups that interleave
// the three lanes non-trivially: eight consecutive input samples per
// lane scatter to fixed byte positions inside each group. The three
// per-lane conversions write disjoint positions of the same output
// buffer, so they can run in any order.
//
// For signed lanes the bias is 128; byte addition wraps, which turns
// twos-complement samples into the offset-binary midpoint
// representation the DAC expects.

func laneBias(signed bool) byte {
	if signed {
		return 128
	}
	return 0
}

func convertR(out, in []byte, bias byte) {
	if out == nil || in == nil {
		return
	}
	groups := len(out) / 24
	if g := len(in) / 8; g < groups {
		groups = g
	}
	for g := 0; g < groups; g++ {
		o := out[g*24 : g*24+24]
		i := in[g*8 : g*8+8]
		o[6] = i[0] + bias
		o[1] = i[1] + bias
		o[12] = i[2] + bias
		o[15] = i[3] + bias
		o[10] = i[4] + bias
		o[21] = i[5] + bias
		o[16] = i[6] + bias
		o[19] = i[7] + bias
	}
}

func convertG(out, in []byte, bias byte) {
	if out == nil || in == nil {
		return
	}
	groups := len(out) / 24
	if g := len(in) / 8; g < groups {
		groups = g
	}
	for g := 0; g < groups; g++ {
		o := out[g*24 : g*24+24]
		i := in[g*8 : g*8+8]
		o[5] = i[0] + bias
		o[0] = i[1] + bias
		o[3] = i[2] + bias
		o[14] = i[3] + bias
		o[9] = i[4] + bias
		o[20] = i[5] + bias
		o[23] = i[6] + bias
		o[18] = i[7] + bias
	}
}

func convertB(out, in []byte, bias byte) {
	if out == nil || in == nil {
		return
	}
	groups := len(out) / 24
	if g := len(in) / 8; g < groups {
		groups = g
	}
	for g := 0; g < groups; g++ {
		o := out[g*24 : g*24+24]
		i := in[g*8 : g*8+8]
		o[4] = i[0] + bias
		o[7] = i[1] + bias
		o[2] = i[2] + bias
		o[13] = i[3] + bias
		o[8] = i[4] + bias
		o[11] = i[5] + bias
		o[22] = i[6] + bias
		o[17] = i[7] + bias
	}
}
