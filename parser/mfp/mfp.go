// Package mfp decodes Magnetic Fields Packer modules.
//
// The song file holds instruments, orders and patterns; the sample data lives in a companion file
// whose name is derived from the song file's name (see CompanionNames).
package mfp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/protracker"
	"github.com/QEStudios/ModLoader/song"
)

const (
	FormatName = "Magnetic Fields Packer"

	sniffSize     = 384
	restartOffset = 249
	restartMagic  = 0x7f
	lengthOffset  = 248
	size1Offset   = 378
	size2Offset   = 380
	recordSize    = 8
	orderSlots    = 128
)

// Format is the Magnetic Fields Packer entry in the dispatcher's format list.
type Format struct{}

var _ parser.Format = Format{}

func (Format) Name() string { return "mfp" }

// Test runs the structural sniff over the first 384 bytes.
func (Format) Test(r io.ReadSeeker) error {
	return parser.Sniff(r, func(c *parser.Cursor) error {
		buf, err := c.Block(sniffSize)
		if err != nil {
			return err
		}
		return sniff(buf)
	})
}

func sniff(buf []byte) error {
	if buf[restartOffset] != restartMagic {
		return parser.Mismatchf("mfp: restart byte 0x%02x", buf[restartOffset])
	}
	for i := range protracker.NumInstruments {
		rec := buf[i*recordSize:]
		length := int(binary.BigEndian.Uint16(rec))
		loopStart := int(binary.BigEndian.Uint16(rec[4:]))
		loopSize := int(binary.BigEndian.Uint16(rec[6:]))
		switch {
		case length > 0x7fff:
			return parser.Mismatchf("mfp: instrument %d length 0x%x", i, length)
		case rec[2]&0xf0 != 0:
			return parser.Mismatchf("mfp: instrument %d finetune 0x%02x", i, rec[2])
		case rec[3] > song.MaxVolume:
			return parser.Mismatchf("mfp: instrument %d volume %d", i, rec[3])
		case loopStart > length:
			return parser.Mismatchf("mfp: instrument %d loop start past its end", i)
		case loopStart+loopSize-1 > length:
			return parser.Mismatchf("mfp: instrument %d loop end past its end", i)
		case length > 0 && loopSize == 0:
			return parser.Mismatchf("mfp: instrument %d has no loop size", i)
		}
	}
	size1 := binary.BigEndian.Uint16(buf[size1Offset:])
	size2 := binary.BigEndian.Uint16(buf[size2Offset:])
	if uint16(buf[lengthOffset]) != size1 || size1 != size2 {
		return parser.Mismatchf("mfp: pattern counts %d/%d/%d disagree", buf[lengthOffset], size1, size2)
	}
	return nil
}

func (Format) Parse(r io.ReadSeeker, cfg parser.Config) (*parser.Result, error) {
	return NewParser(r, cfg).Parse()
}

// Parser decodes one Magnetic Fields Packer module.
type Parser struct {
	parser.Base
	sb *song.Builder
}

// NewParser creates a new parser to decode r. cfg.FS and cfg.Name must locate the song file
// so the companion sample file can be found next to it.
func NewParser(r io.ReadSeeker, cfg parser.Config) *Parser {
	p := &Parser{sb: song.NewBuilder()}
	p.Init(r, cfg)
	return p
}

// Parse decodes instruments, orders and patterns, then loads the samples from the companion file.
func (p *Parser) Parse() (*parser.Result, error) {
	if err := p.Begin(); err != nil {
		return nil, err
	}
	c := p.Cursor
	s := p.sb.Song()
	s.Format = FormatName
	s.Flags |= song.ModRange
	if err := p.sb.SetChannels(protracker.Channels); err != nil {
		return nil, p.Check(err)
	}

	recs := make([]protracker.InstrumentRecord, protracker.NumInstruments)
	for i := range recs {
		var err error
		if recs[i], err = protracker.ReadInstrumentRecord(c, false); err != nil {
			return nil, err
		}
	}
	if err := protracker.ApplyInstruments(&p.Base, p.sb, recs); err != nil {
		return nil, err
	}

	numPatterns, err := c.U8()
	if err != nil {
		return nil, err
	}
	if numPatterns > orderSlots {
		return nil, p.Fatalf("pattern count %d exceeds %d", numPatterns, orderSlots)
	}
	if _, err := c.U8(); err != nil { // restart
		return nil, err
	}
	orders, err := c.Block(orderSlots)
	if err != nil {
		return nil, err
	}
	// One order per stored pattern.
	if err := p.sb.SetOrders(orders[:numPatterns]); err != nil {
		return nil, p.Check(err)
	}

	if err := p.readPatterns(int(numPatterns)); err != nil {
		return nil, err
	}
	if err := p.readSamples(recs); err != nil {
		return nil, err
	}
	return p.Result(p.sb)
}

func (p *Parser) readSamples(recs []protracker.InstrumentRecord) error {
	f, name, err := OpenCompanion(p.Config)
	if err != nil {
		return err
	}
	defer f.Close()
	p.Logger.Printf("Loading samples from %s", name)

	for i := range recs {
		if err := p.LoadSample(f, p.sb, i, 0); err != nil {
			return fmt.Errorf("sample file %s: %w", name, err)
		}
	}
	return nil
}
