package mfp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/protracker"
)

// Each channel of a pattern is a block of at most this many bytes at its table offset.
const BlockSize = 1024

// readPatterns reads the offset table and decodes every pattern.
func (p *Parser) readPatterns(numPatterns int) error {
	c := p.Cursor
	size1, err := c.U16(binary.BigEndian)
	if err != nil {
		return err
	}
	if _, err := c.U16(binary.BigEndian); err != nil { // size2, unused
		return err
	}
	if int(size1) < numPatterns {
		return p.Fatalf("pattern table has %d rows for %d patterns", size1, numPatterns)
	}

	table := make([][protracker.Channels]uint16, size1)
	for i := range table {
		for j := range protracker.Channels {
			if table[i][j], err = c.U16(binary.BigEndian); err != nil {
				return err
			}
		}
	}
	base := c.Pos()

	p.Logger.Printf("Stored patterns: %d", numPatterns)
	if err := p.sb.SetPatternCount(numPatterns); err != nil {
		return p.Check(err)
	}
	for i := range numPatterns {
		if _, err := p.sb.NewPattern(i, protracker.Rows); err != nil {
			return p.Check(err)
		}
		for ch := range protracker.Channels {
			if _, err := c.Seek(base+int64(table[i][ch]), io.SeekStart); err != nil {
				return err
			}
			block, err := c.BlockAtMost(BlockSize)
			if err != nil {
				return err
			}
			if err := p.decodeChannel(i, ch, block); err != nil {
				return fmt.Errorf("pattern %d channel %d: %w", i, ch, err)
			}
		}
	}
	return nil
}

// decodeChannel rebuilds the 64 rows of one channel. Row 16k+4x+y is the event at Resolve(block, k, x, y).
func (p *Parser) decodeChannel(pat, ch int, block []byte) error {
	row := 0
	for k := range 4 {
		for x := range 4 {
			for y := range 4 {
				off, err := Resolve(block, k, x, y)
				if err != nil {
					return p.Fatalf("row %d: %v", row, err)
				}
				e, err := p.sb.Event(pat, ch, row)
				if err != nil {
					return p.Check(err)
				}
				if *e, err = protracker.ConvertEvent(block[off : off+protracker.EventSize]); err != nil {
					return p.Fatalf("row %d: %v", row, err)
				}
				row++
			}
		}
	}
	return nil
}

// Resolve follows the three-level index chain block[block[block[k]+x]+y] and returns the byte offset
// of the 4-byte event it selects (twice the final index). Every lookup and the event itself must lie inside block.
func Resolve(block []byte, k, x, y int) (int, error) {
	at := func(i int) (int, error) {
		if i < 0 || i >= len(block) {
			return 0, parser.Corruptf("index %d outside %d-byte block", i, len(block))
		}
		return int(block[i]), nil
	}
	a, err := at(k)
	if err != nil {
		return 0, err
	}
	b, err := at(a + x)
	if err != nil {
		return 0, err
	}
	c, err := at(b + y)
	if err != nil {
		return 0, err
	}
	off := c * 2
	if off+protracker.EventSize > len(block) {
		return 0, parser.Corruptf("event at %d outside %d-byte block", off, len(block))
	}
	return off, nil
}
