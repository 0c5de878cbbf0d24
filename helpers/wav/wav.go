// Copyright 2022 Mark Siner. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

type RiffChunk struct {
	ChunkId   [4]byte
	ChunkSize uint32
	Format    [4]byte
}

type FmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type DataChunk struct {
	ChunkId   [4]byte
	ChunkSize uint32
	// samples follow this chunk
}

type Header struct {
	Riff RiffChunk
	Fmt  FmtChunk
	Data DataChunk
	// samples follow the header data chunk
}

type SampleFormat uint16

const (
	LPCM              SampleFormat = 1
	IEEEFloatingPoint SampleFormat = 3
)

// ReadHeader decodes a little-endian ("RIFF") WAV header from r and
// leaves r positioned at the first sample of the data chunk. Chunks
// other than "fmt " and "data" are skipped. Big-endian "RIFX" files
// are rejected.
func ReadHeader(r io.Reader) (*Header, error) {
	var head Header

	if err := binary.Read(r, binary.LittleEndian, &head.Riff); err != nil {
		return nil, fmt.Errorf("failed to read RIFF chunk: %w", err)
	}
	switch string(head.Riff.ChunkId[:]) {
	case "RIFF":
		// Good
	case "RIFX":
		return nil, fmt.Errorf("big-endian RIFX files are not supported")
	default:
		return nil, fmt.Errorf("not a RIFF file: got chunk id %q", string(head.Riff.ChunkId[:]))
	}
	if string(head.Riff.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("not a WAVE file: got format %q", string(head.Riff.Format[:]))
	}

	var gotFmt bool
	for {
		var (
			id   [4]byte
			size uint32
		)
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("failed to read chunk id: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("failed to read chunk size: %w", err)
		}

		switch string(id[:]) {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			if err := binary.Read(r, binary.LittleEndian, &head.Fmt); err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			// Skip any format extension.
			if err := skip(r, int64(size)-16); err != nil {
				return nil, err
			}
			gotFmt = true
		case "data":
			if !gotFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			head.Data.ChunkId = id
			head.Data.ChunkSize = size
			return &head, nil
		default:
			if err := skip(r, int64(size)); err != nil {
				return nil, err
			}
		}
	}
}

func skip(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("failed to skip chunk: %w", err)
	}
	return nil
}

// Validate8BitLPCM returns a non-nil error if the header does not
// describe the one format the DAC lanes accept: 8-bit mono linear PCM.
func (h *Header) Validate8BitLPCM() error {
	if SampleFormat(h.Fmt.AudioFormat) != LPCM {
		return fmt.Errorf("unsupported audio format %d; want LPCM", h.Fmt.AudioFormat)
	}
	if h.Fmt.BitsPerSample != 8 {
		return fmt.Errorf("unsupported sample size %d bits; want 8", h.Fmt.BitsPerSample)
	}
	if h.Fmt.NumChannels != 1 {
		return fmt.Errorf("unsupported channel count %d; want 1", h.Fmt.NumChannels)
	}
	return nil
}
