// Package sample materializes sample payloads once a decoder has worked out where they are and what shape they have.
package sample

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/QEStudios/ModLoader/song"
)

// ErrShortSample is returned when the stream ends before the declared sample length.
var ErrShortSample = errors.New("sample data ends early")

// Loader reads the payload for one sample slot.
// r is positioned at the first byte of the payload; baseRate is the sample's base rate in Hz (0 if unknown).
// On success the loader must have consumed exactly the payload bytes described by info.
type Loader interface {
	Load(r io.Reader, slot int, baseRate int, info *song.Sample) ([]int16, error)
}

// PCM loads signed 8-bit or little-endian signed 16-bit PCM and widens it to 16 bits per frame.
type PCM struct{}

func (PCM) Load(r io.Reader, slot int, baseRate int, info *song.Sample) ([]int16, error) {
	if info.Length <= 0 {
		return nil, nil
	}
	raw := make([]byte, info.Length*info.FrameSize())
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sample %d: %d bytes wanted: %w", slot, len(raw), ErrShortSample)
		}
		return nil, fmt.Errorf("sample %d: %w", slot, err)
	}

	out := make([]int16, info.Length)
	if info.Is16Bit() {
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	} else {
		for i := range out {
			out[i] = int16(int8(raw[i])) << 8
		}
	}
	return out, nil
}

// Skip consumes the payload without keeping it. It is used when only the song structure is wanted.
type Skip struct{}

func (Skip) Load(r io.Reader, slot int, baseRate int, info *song.Sample) ([]int16, error) {
	n := int64(info.Length) * int64(info.FrameSize())
	if n <= 0 {
		return nil, nil
	}
	copied, err := io.CopyN(io.Discard, r, n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sample %d: %d of %d bytes: %w", slot, copied, n, ErrShortSample)
		}
		return nil, fmt.Errorf("sample %d: %w", slot, err)
	}
	return nil, nil
}
