package protracker

import (
	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
)

const (
	TitleSize  = 20
	OrderSlots = 128
	MagicSize  = 4

	// HeaderSize is the size of everything before the first pattern.
	HeaderSize = TitleSize + NumInstruments*RecordSize + 2 + OrderSlots + MagicSize
)

// Header is the fixed part of a classic module.
type Header struct {
	Title       string
	Instruments [NumInstruments]InstrumentRecord
	Length      uint8 // Number of orders in use.
	Restart     uint8
	Orders      [OrderSlots]uint8
	Magic       [MagicSize]byte
}

// ReadHeader reads the 1084-byte classic module header.
func ReadHeader(c *parser.Cursor) (*Header, error) {
	h := &Header{}
	var err error
	if h.Title, err = c.String(TitleSize); err != nil {
		return nil, err
	}
	for i := range h.Instruments {
		if h.Instruments[i], err = ReadInstrumentRecord(c, true); err != nil {
			return nil, err
		}
	}
	if h.Length, err = c.U8(); err != nil {
		return nil, err
	}
	if h.Restart, err = c.U8(); err != nil {
		return nil, err
	}
	orders, err := c.Block(OrderSlots)
	if err != nil {
		return nil, err
	}
	copy(h.Orders[:], orders)
	if h.Magic, err = c.Tag(); err != nil {
		return nil, err
	}
	return h, nil
}

// PatternCount infers the number of stored patterns: one more than the highest entry in all 128 order slots.
func (h *Header) PatternCount() int {
	highest := 0
	for _, o := range h.Orders {
		highest = max(highest, int(o))
	}
	return highest + 1
}

// Decode reads a complete classic module from the cursor into sb: header, instruments,
// 64-row 4-channel patterns, then every non-empty sample in slot order.
// Song-level metadata other than the title, channel layout and orders is left to the caller.
func Decode(b *parser.Base, sb *song.Builder) (*Header, error) {
	c := b.Cursor
	h, err := ReadHeader(c)
	if err != nil {
		return nil, err
	}
	if int(h.Length) > OrderSlots {
		return nil, b.Fatalf("order list length %d exceeds %d slots", h.Length, OrderSlots)
	}

	s := sb.Song()
	if err := sb.SetChannels(Channels); err != nil {
		return nil, b.Check(err)
	}
	if err := sb.SetOrders(h.Orders[:h.Length]); err != nil {
		return nil, b.Check(err)
	}
	s.Restart = int(h.Restart)
	s.Flags |= song.ModRange

	if err := ApplyInstruments(b, sb, h.Instruments[:]); err != nil {
		return nil, err
	}

	numPatterns := h.PatternCount()
	b.Logger.Printf("Stored patterns: %d", numPatterns)
	if err := sb.SetPatternCount(numPatterns); err != nil {
		return nil, b.Check(err)
	}
	for i := range numPatterns {
		if err := DecodePattern(b, sb, i); err != nil {
			return nil, err
		}
	}

	for i, rec := range h.Instruments {
		if rec.Size == 0 {
			continue
		}
		if err := b.LoadSample(c, sb, i, BaseRate); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ApplyInstruments declares len(recs) instrument slots and fills them from the records.
func ApplyInstruments(b *parser.Base, sb *song.Builder, recs []InstrumentRecord) error {
	if err := sb.SetInstrumentCount(len(recs)); err != nil {
		return b.Check(err)
	}
	for i := range recs {
		ins, smp, err := sb.Instrument(i)
		if err != nil {
			return b.Check(err)
		}
		warning, err := recs[i].Apply(ins, smp, i)
		if err != nil {
			return b.Fatalf("%v", err)
		}
		if warning != "" {
			b.Warnf("%s", warning)
		}
	}
	return nil
}

// DecodePattern reads one flat 64x4 pattern of classic events, row by row.
func DecodePattern(b *parser.Base, sb *song.Builder, pat int) error {
	if _, err := sb.NewPattern(pat, Rows); err != nil {
		return b.Check(err)
	}
	raw, err := b.Cursor.Block(Rows * Channels * EventSize)
	if err != nil {
		return err
	}
	for j := range Rows * Channels {
		e, err := sb.Event(pat, j%Channels, j/Channels)
		if err != nil {
			return b.Check(err)
		}
		if *e, err = ConvertEvent(raw[j*EventSize:]); err != nil {
			return b.Fatalf("pattern %d row %d channel %d: %v", pat, j/Channels, j%Channels, err)
		}
	}
	return nil
}
