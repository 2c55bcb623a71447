// Package liquid decodes Liquid Tracker modules ("Liquid Module:" signature).
package liquid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
)

const (
	Magic = "Liquid Module:"

	nameSize    = 30
	authorSize  = 20
	trackerSize = 20

	// Size of the fixed header up to and including the header size field.
	headerSize = 0x6d

	// Old-layout modules keep a 256-entry order block at a fixed offset, terminated by orderEnd.
	oldOrderOffset = 0xf0
	orderEnd       = 0xff
)

// Header is the fixed part of a Liquid module.
type Header struct {
	Name     string
	Author   string
	Tracker  string
	Version  uint16 // Major version in the high byte, minor in the low byte.
	Speed    uint16
	BPM      uint16
	Low      uint16 // Lowest note used; informational.
	High     uint16 // Highest note used; informational.
	Channels uint16
	Flags    uint32
	Patterns uint16
	Ins      uint16
	Length   uint16 // Order list length. Zero in old-layout modules.
	HdrSize  uint16 // Absolute offset of the first pattern.
}

// Old reports whether the header uses the pre-1.00 layout without pan/volume tables.
func (h *Header) Old() bool {
	return h.Version>>8 == 0
}

// FormatString returns the human readable type string, e.g. "Liquid module 1.00".
func (h *Header) FormatString() string {
	return fmt.Sprintf("Liquid module %d.%02d", h.Version>>8, h.Version&0xff)
}

// Format is the Liquid Tracker entry in the dispatcher's format list.
type Format struct{}

var _ parser.Format = Format{}

func (Format) Name() string { return "liq" }

// Test checks the 14-byte signature.
func (Format) Test(r io.ReadSeeker) error {
	return parser.Sniff(r, func(c *parser.Cursor) error {
		magic, err := c.Block(len(Magic))
		if err != nil {
			return err
		}
		if !bytes.Equal(magic, []byte(Magic)) {
			return parser.Mismatchf("liquid: bad signature %q", magic)
		}
		return nil
	})
}

func (Format) Parse(r io.ReadSeeker, cfg parser.Config) (*parser.Result, error) {
	return NewParser(r, cfg).Parse()
}

// Parser decodes one Liquid module.
type Parser struct {
	parser.Base
	header Header
	sb     *song.Builder
}

// NewParser creates a new parser to decode r.
func NewParser(r io.ReadSeeker, cfg parser.Config) *Parser {
	p := &Parser{sb: song.NewBuilder()}
	p.Init(r, cfg)
	return p
}

// Parse decodes the module: header, order list, patterns and then instruments with their sample data.
func (p *Parser) Parse() (*parser.Result, error) {
	if err := p.Begin(); err != nil {
		return nil, err
	}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	if err := p.readOrders(); err != nil {
		return nil, err
	}

	p.Logger.Printf("Stored patterns: %d", p.header.Patterns)
	if err := p.sb.SetPatternCount(int(p.header.Patterns)); err != nil {
		return nil, p.Check(err)
	}
	if err := p.sb.SetInstrumentCount(int(p.header.Ins)); err != nil {
		return nil, p.Check(err)
	}
	for i := range int(p.header.Patterns) {
		if err := p.readPattern(i); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
	}

	p.Logger.Printf("Instruments: %d", p.header.Ins)
	for i := range int(p.header.Ins) {
		if err := p.readInstrument(i); err != nil {
			return nil, fmt.Errorf("instrument %d: %w", i, err)
		}
	}

	return p.Result(p.sb)
}

// Header returns the header read by Parse.
func (p *Parser) Header() Header {
	return p.header
}

func (p *Parser) readHeader() error {
	c := p.Cursor
	magic, err := c.Block(len(Magic))
	if err != nil {
		return err
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return parser.Mismatchf("liquid: bad signature %q", magic)
	}

	h := &p.header
	if h.Name, err = c.String(nameSize); err != nil {
		return err
	}
	if h.Author, err = c.String(authorSize); err != nil {
		return err
	}
	if err := c.Skip(1); err != nil { // 0x1a
		return err
	}
	if h.Tracker, err = c.String(trackerSize); err != nil {
		return err
	}

	words := []*uint16{&h.Version, &h.Speed, &h.BPM, &h.Low, &h.High, &h.Channels}
	for _, w := range words {
		if *w, err = c.U16(binary.LittleEndian); err != nil {
			return err
		}
	}
	if h.Flags, err = c.U32(binary.LittleEndian); err != nil {
		return err
	}
	words = []*uint16{&h.Patterns, &h.Ins, &h.Length, &h.HdrSize}
	for _, w := range words {
		if *w, err = c.U16(binary.LittleEndian); err != nil {
			return err
		}
	}

	if h.Old() {
		// No order length field: what was read as the length is the header size.
		h.HdrSize = h.Length
		h.Length = 0
		if err := c.Skip(-2); err != nil {
			return err
		}
	}

	s := p.sb.Song()
	s.Title = h.Name
	s.Author = h.Author
	s.Tracker = h.Tracker
	s.Format = h.FormatString()
	s.Speed = int(h.Speed)
	s.BPM = int(h.BPM)
	s.Flags |= song.InstrumentVolume
	if err := p.sb.SetChannels(int(h.Channels)); err != nil {
		return p.Check(err)
	}

	p.Logger.Printf("Module: %q by %q (%s), %d channels", h.Name, h.Author, s.Format, h.Channels)
	if h.Flags != 0 {
		p.Logger.Printf("Header flags: 0x%08x", h.Flags)
	}
	return nil
}

// readOrders reads the channel tables and order list and leaves the cursor at the first pattern.
func (p *Parser) readOrders() error {
	c := p.Cursor
	h := &p.header
	s := p.sb.Song()

	if h.Old() {
		if _, err := c.Seek(oldOrderOffset, io.SeekStart); err != nil {
			return err
		}
		block, err := c.Block(song.MaxOrders)
		if err != nil {
			return err
		}
		length := bytes.IndexByte(block, orderEnd)
		if length < 0 {
			length = len(block)
		}
		if err := p.sb.SetOrders(block[:length]); err != nil {
			return p.Check(err)
		}
		_, err = c.Seek(int64(h.HdrSize), io.SeekStart)
		return err
	}

	for i := range s.Channels {
		b, err := c.U8()
		if err != nil {
			return err
		}
		s.ChannelPan[i] = uint8(min(int(b)<<2, 0xff))
	}
	for i := range s.Channels {
		b, err := c.U8()
		if err != nil {
			return err
		}
		if b > song.MaxVolume {
			p.Warnf("channel %d volume %d out of range, clamped", i, b)
			b = song.MaxVolume
		}
		s.ChannelVolume[i] = b
	}

	orders, err := c.Block(int(h.Length))
	if err != nil {
		return err
	}
	if err := p.sb.SetOrders(orders); err != nil {
		return p.Check(err)
	}

	// Skip whatever trails the order list (echo pools in 1.01).
	skip := int64(h.HdrSize) - (headerSize + int64(s.Channels)*2 + int64(h.Length))
	if skip < 0 {
		return p.Fatalf("header size %d is smaller than the header's own fields", h.HdrSize)
	}
	return c.Skip(skip)
}
