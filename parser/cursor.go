package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Cursor reads fixed-size integers and byte blocks sequentially from a seekable source.
// Every read either returns all the bytes it asked for or fails with ErrTruncatedInput;
// it never returns a partially filled value.
type Cursor struct {
	r    io.ReadSeeker
	pos  int64 // Absolute offset of the next byte.
	size int64 // Total size of the source.
}

// NewCursor creates a cursor positioned at r's current offset.
func NewCursor(r io.ReadSeeker) (*Cursor, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("cannot get stream position: %w", err)
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("cannot get stream size: %w", err)
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cannot restore stream position: %w", err)
	}
	return &Cursor{r: r, pos: pos, size: size}, nil
}

// Pos returns the absolute offset of the next byte to be read.
func (c *Cursor) Pos() int64 { return c.pos }

// Size returns the total size of the source.
func (c *Cursor) Size() int64 { return c.size }

// Remaining returns how many bytes are left before the end of the source.
func (c *Cursor) Remaining() int64 {
	return max(0, c.size-c.pos)
}

// AtEOF reports whether there is nothing left to read.
func (c *Cursor) AtEOF() bool {
	return c.pos >= c.size
}

func (c *Cursor) truncated(want int) error {
	return fmt.Errorf("offset 0x%x: need %d bytes, %d left: %w", c.pos, want, c.Remaining(), ErrTruncatedInput)
}

func (c *Cursor) fill(p []byte) error {
	if int64(len(p)) > c.Remaining() {
		return c.truncated(len(p))
	}
	n, err := io.ReadFull(c.r, p)
	c.pos += int64(n)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return c.truncated(len(p))
		}
		return fmt.Errorf("offset 0x%x: %w", c.pos, err)
	}
	return nil
}

// U8 reads one byte.
func (c *Cursor) U8() (uint8, error) {
	var b [1]byte
	if err := c.fill(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a 16-bit integer in the given byte order.
func (c *Cursor) U16(order binary.ByteOrder) (uint16, error) {
	var b [2]byte
	if err := c.fill(b[:]); err != nil {
		return 0, err
	}
	return order.Uint16(b[:]), nil
}

// U32 reads a 32-bit integer in the given byte order.
func (c *Cursor) U32(order binary.ByteOrder) (uint32, error) {
	var b [4]byte
	if err := c.fill(b[:]); err != nil {
		return 0, err
	}
	return order.Uint32(b[:]), nil
}

// Block reads exactly n bytes.
func (c *Cursor) Block(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("offset 0x%x: negative block size %d: %w", c.pos, n, ErrCorruptStructure)
	}
	b := make([]byte, n)
	if err := c.fill(b); err != nil {
		return nil, err
	}
	return b, nil
}

// BlockAtMost reads up to n bytes, stopping early only at the end of the source.
func (c *Cursor) BlockAtMost(n int) ([]byte, error) {
	n = int(min(int64(max(n, 0)), c.Remaining()))
	return c.Block(n)
}

// Tag reads a 4-byte identifier.
func (c *Cursor) Tag() ([4]byte, error) {
	var b [4]byte
	err := c.fill(b[:])
	return b, err
}

// String reads a fixed-size text field and trims trailing NULs and spaces.
func (c *Cursor) String(n int) (string, error) {
	b, err := c.Block(n)
	if err != nil {
		return "", err
	}
	return PaddedString(b), nil
}

// Read implements io.Reader so collaborators like sample loaders can consume the stream directly.
// Unlike the other methods it may return fewer bytes than asked for.
func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

// Seek moves the cursor. Seeking before the start of the source fails with ErrSeekOutOfRange;
// seeking past the end is allowed, but the next read will fail.
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = c.size + offset
	default:
		return c.pos, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return c.pos, fmt.Errorf("offset 0x%x: seek to %d: %w", c.pos, abs, ErrSeekOutOfRange)
	}
	if _, err := c.r.Seek(abs, io.SeekStart); err != nil {
		return c.pos, fmt.Errorf("offset 0x%x: %w", c.pos, err)
	}
	c.pos = abs
	return abs, nil
}

// Skip moves the cursor n bytes forward (or backward if n is negative).
func (c *Cursor) Skip(n int64) error {
	_, err := c.Seek(n, io.SeekCurrent)
	return err
}

// PaddedString extracts a string from a fixed-size field, stopping at the first NUL and trimming trailing spaces.
func PaddedString(data []byte) string {
	end := len(data)
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	return strings.TrimRight(string(data[:end]), " ")
}
