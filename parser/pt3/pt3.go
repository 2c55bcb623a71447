// Package pt3 decodes Protracker 3 IFF modules: a FORM/MODL container whose PTDT chunk
// carries a classic 4-channel module.
package pt3

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/iff"
	"github.com/QEStudios/ModLoader/parser/protracker"
	"github.com/QEStudios/ModLoader/song"
)

const (
	formTag = "FORM"
	modlTag = "MODL"

	infoNameSize = 32
	infoSize     = infoNameSize + 15*2
	versSize     = 10
)

// Flags of the INFO chunk.
const (
	FlagCIA    = 1 << iota // VBlank timing if not set.
	FlagFilter             // Filter status.
	FlagSong               // Modules have this bit unset.
	FlagIRQ                // Soft IRQ.
	FlagVarPat             // Variable pattern length.
	Flag8Voice             // 4 voices if not set.
	Flag16Bit              // 8-bit samples if not set.
	FlagRawPat             // Packed patterns if not set.
)

// Format is the Protracker 3 entry in the dispatcher's format list.
type Format struct{}

var _ parser.Format = Format{}

func (Format) Name() string { return "pt3" }

// Test checks the FORM and MODL tags.
func (Format) Test(r io.ReadSeeker) error {
	return parser.Sniff(r, readForm)
}

func readForm(c *parser.Cursor) error {
	form, err := c.Tag()
	if err != nil {
		return err
	}
	if _, err := c.U32(binary.BigEndian); err != nil {
		return err
	}
	id, err := c.Tag()
	if err != nil {
		return err
	}
	if string(form[:]) != formTag || string(id[:]) != modlTag {
		return parser.Mismatchf("pt3: container %q/%q", form[:], id[:])
	}
	return nil
}

func (Format) Parse(r io.ReadSeeker, cfg parser.Config) (*parser.Result, error) {
	return NewParser(r, cfg).Parse()
}

// Info holds the INFO chunk.
type Info struct {
	Name         string
	Instruments  uint16
	Length       uint16
	Patterns     uint16
	GlobalVolume uint16
	BPM          uint16
	Flags        uint16
	Created      [6]uint16 // Day, month, year, hour, minute, second.
	PlayTime     [3]uint16 // Hours, minutes, seconds.
}

// Parser decodes one Protracker 3 module.
type Parser struct {
	parser.Base
	sb *song.Builder

	info    *Info
	header  *protracker.Header
	version string
}

// NewParser creates a new parser to decode r.
func NewParser(r io.ReadSeeker, cfg parser.Config) *Parser {
	p := &Parser{sb: song.NewBuilder()}
	p.Init(r, cfg)
	return p
}

// Parse walks the container's chunks and returns the song found in its PTDT chunk.
func (p *Parser) Parse() (*parser.Result, error) {
	if err := p.Begin(); err != nil {
		return nil, err
	}
	if err := readForm(p.Cursor); err != nil {
		return nil, err
	}

	chunks := iff.NewReader()
	chunks.FullChunkSize = true
	defer chunks.Release()
	for tag, h := range map[string]iff.Handler{
		"VERS": p.readVersion,
		"INFO": p.readInfo,
		"CMNT": p.readComment,
		"PTDT": p.readPatternData,
	} {
		if err := chunks.Register(tag, h); err != nil {
			return nil, err
		}
	}
	if err := chunks.Run(p.Cursor); err != nil {
		return nil, err
	}
	for _, ch := range chunks.Chunks {
		if !ch.Handled {
			p.Logger.Printf("Skipped chunk %s (%d bytes)", ch.Tag, ch.Size)
		}
	}

	if p.header == nil {
		return nil, p.Fatalf("no PTDT chunk")
	}
	s := p.sb.Song()
	s.Format = "Protracker 3"
	if p.version != "" {
		s.Format = fmt.Sprintf("%-6.6s (Protracker IFFMODL)", p.version)
	}
	if p.info != nil && p.info.Length != uint16(p.header.Length) {
		p.Warnf("INFO says %d orders, pattern data has %d", p.info.Length, p.header.Length)
	}
	if s.Title == "" {
		s.Title = p.header.Title
	}
	return p.Result(p.sb)
}

func (p *Parser) readVersion(c *parser.Cursor, size int64) error {
	buf, err := c.BlockAtMost(int(min(size, versSize)))
	if err != nil {
		return err
	}
	if len(buf) > 4 {
		p.version = parser.PaddedString(buf[4:])
	}
	return nil
}

func (p *Parser) readInfo(c *parser.Cursor, size int64) error {
	if size < infoSize {
		return p.Fatalf("INFO chunk is %d bytes, need %d", size, infoSize)
	}
	info := &Info{}
	var err error
	if info.Name, err = c.String(infoNameSize); err != nil {
		return err
	}
	fields := []*uint16{&info.Instruments, &info.Length, &info.Patterns, &info.GlobalVolume, &info.BPM, &info.Flags}
	for i := range info.Created {
		fields = append(fields, &info.Created[i])
	}
	for i := range info.PlayTime {
		fields = append(fields, &info.PlayTime[i])
	}
	for _, f := range fields {
		if *f, err = c.U16(binary.BigEndian); err != nil {
			return err
		}
	}
	p.info = info

	s := p.sb.Song()
	s.Title = info.Name
	if info.GlobalVolume <= song.MaxVolume {
		s.GlobalVolume = int(info.GlobalVolume)
	} else {
		p.Warnf("global volume %d out of range, ignored", info.GlobalVolume)
	}
	if info.BPM > 0 {
		s.BPM = int(info.BPM)
	}
	s.Created = info.CreatedTime()
	s.PlayTime = info.Duration()

	p.Logger.Printf("Creation date: %02d/%02d/%02d %02d:%02d:%02d",
		info.Created[0], info.Created[1], info.Created[2], info.Created[3], info.Created[4], info.Created[5])
	p.Logger.Printf("Playing time: %02d:%02d:%02d", info.PlayTime[0], info.PlayTime[1], info.PlayTime[2])
	p.Logger.Printf("Flags: 0x%04x", info.Flags)
	if info.Flags&(Flag8Voice|Flag16Bit|FlagVarPat) != 0 {
		p.Warnf("INFO flags 0x%04x ask for features the PTDT layout doesn't carry, ignored", info.Flags)
	}
	return nil
}

// CreatedTime returns the creation date, or the zero time if the stored date isn't valid.
func (info *Info) CreatedTime() time.Time {
	day, month, year := int(info.Created[0]), int(info.Created[1]), int(info.Created[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	if year < 100 {
		year += 1900
	}
	return time.Date(year, time.Month(month), day,
		int(info.Created[3]), int(info.Created[4]), int(info.Created[5]), 0, time.UTC)
}

// Duration returns the stored playing time.
func (info *Info) Duration() time.Duration {
	return time.Duration(info.PlayTime[0])*time.Hour +
		time.Duration(info.PlayTime[1])*time.Minute +
		time.Duration(info.PlayTime[2])*time.Second
}

func (p *Parser) readComment(c *parser.Cursor, size int64) error {
	p.Logger.Printf("Comment size: %d", size)
	return nil
}

func (p *Parser) readPatternData(c *parser.Cursor, size int64) error {
	if p.header != nil {
		return p.Fatalf("more than one PTDT chunk")
	}
	h, err := protracker.Decode(&p.Base, p.sb)
	if err != nil {
		return err
	}
	p.header = h
	return nil
}
