// Package iff walks IFF-style tag/size/payload chunks and dispatches them to handlers registered by tag.
package iff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/QEStudios/ModLoader/parser"
)

const headerSize = 8 // 4-byte tag + 32-bit size.

// Handler processes one chunk. The cursor is positioned at the start of the payload and size is the payload length.
// The handler doesn't need to consume the whole payload.
type Handler func(c *parser.Cursor, size int64) error

// Chunk describes one chunk seen while iterating.
type Chunk struct {
	Tag     string
	Offset  int64 // Offset of the payload.
	Size    int64 // Payload length.
	Handled bool
}

// Reader holds the handler registrations for one decode session.
type Reader struct {
	handlers map[string]Handler

	// FullChunkSize means stored sizes include the 8-byte chunk header.
	FullChunkSize bool

	// Chunks lists every chunk visited, in order.
	Chunks []Chunk
}

// NewReader returns a reader with no handlers registered.
func NewReader() *Reader {
	return &Reader{handlers: make(map[string]Handler)}
}

// Register binds a handler to a 4-character tag. Registering the same tag twice is an error.
func (r *Reader) Register(tag string, h Handler) error {
	if r.handlers == nil {
		return fmt.Errorf("iff reader already released")
	}
	if len(tag) != 4 {
		return fmt.Errorf("chunk tag %q must be 4 bytes", tag)
	}
	if _, ok := r.handlers[tag]; ok {
		return fmt.Errorf("chunk tag %q already registered", tag)
	}
	r.handlers[tag] = h
	return nil
}

// Release drops every registration. The reader can't be used afterwards.
func (r *Reader) Release() {
	r.handlers = nil
}

// Next processes one chunk. It returns io.EOF when fewer bytes than a chunk header remain.
func (r *Reader) Next(c *parser.Cursor) error {
	if r.handlers == nil {
		return fmt.Errorf("iff reader already released")
	}
	if c.Remaining() < headerSize {
		return io.EOF
	}

	tag, err := c.Tag()
	if err != nil {
		return err
	}
	stored, err := c.U32(binary.BigEndian)
	if err != nil {
		return err
	}
	size := int64(stored)
	if r.FullChunkSize {
		size -= headerSize
	}
	if size < 0 {
		return fmt.Errorf("offset 0x%x: chunk %q size %d smaller than its header: %w", c.Pos(), tag[:], stored, parser.ErrCorruptStructure)
	}

	chunk := Chunk{Tag: string(tag[:]), Offset: c.Pos(), Size: size}
	if h, ok := r.handlers[chunk.Tag]; ok {
		chunk.Handled = true
		if err := h(c, size); err != nil {
			return fmt.Errorf("chunk %s: %w", chunk.Tag, err)
		}
		if c.Pos() > chunk.Offset+size {
			return fmt.Errorf("offset 0x%x: chunk %s handler read %d bytes past its end: %w",
				c.Pos(), chunk.Tag, c.Pos()-(chunk.Offset+size), parser.ErrCorruptStructure)
		}
	}
	r.Chunks = append(r.Chunks, chunk)

	_, err = c.Seek(chunk.Offset+size, io.SeekStart)
	return err
}

// Run processes chunks until the end of the input.
func (r *Reader) Run(c *parser.Cursor) error {
	for {
		err := r.Next(c)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
