package liquid

import (
	"encoding/binary"

	"github.com/QEStudios/ModLoader/parser/fx"
	"github.com/QEStudios/ModLoader/song"
)

const (
	patternTag      = 0x4c500000 // "LP\0\0"
	emptyPatternTag = 0x21212121 // "!!!!"
	patternNameSize = 30
)

// Pattern stream opcodes. Ranges between them carry packed events.
const (
	opNextRow     = 0x80
	opNextChannel = 0xa0
	opEnd         = 0xc0
	opSkipRows    = 0xe0
	opSkipChans   = 0xe1
)

// Presence bits of a packed event opcode.
const (
	hasNote = 1 << iota
	hasIns
	hasVol
	hasFxType
	hasFxParam
)

// Sentinels of the unpacked event form.
const (
	noValue   = 0xff
	keyOffRaw = 0xfe
	noteBase  = 25 // Raw note 0 is note 25.
	maxIns    = 100
)

type patternState int

const (
	stateReadOpcode patternState = iota
	stateDispatchOpcode
	stateAdvanceRow
	stateAdvanceChannel
	stateResync
	stateDone
)

// patternDecoder walks one pattern's opcode stream. Events are stored track after track:
// every row of channel 0, then every row of channel 1 and so on.
type patternDecoder struct {
	p   *Parser
	pat int

	rows, channels int
	size           int64 // Declared size of the opcode stream.
	start          int64 // Offset of the first opcode.

	row, channel int
	op           uint8

	// Pending repeats of the last packed event (0xa1..0xbf).
	repeat int
	last   song.Event
}

func (p *Parser) readPattern(i int) error {
	c := p.Cursor
	tag, err := c.U32(binary.BigEndian)
	if err != nil {
		return err
	}
	if tag == emptyPatternTag {
		return p.Check(p.sb.EmptyPattern(i))
	}
	if tag != patternTag {
		return p.Fatalf("bad pattern tag 0x%08x", tag)
	}

	name, err := c.String(patternNameSize)
	if err != nil {
		return err
	}
	rows, err := c.U16(binary.LittleEndian)
	if err != nil {
		return err
	}
	size, err := c.U32(binary.LittleEndian)
	if err != nil {
		return err
	}
	if _, err := c.U32(binary.LittleEndian); err != nil { // reserved
		return err
	}

	pat, err := p.sb.NewPattern(i, int(rows))
	if err != nil {
		return p.Check(err)
	}
	pat.Name = name

	d := &patternDecoder{
		p:        p,
		pat:      i,
		rows:     int(rows),
		channels: p.sb.Song().Channels,
		size:     int64(size),
		start:    c.Pos(),
	}
	return d.run()
}

// run drives the state machine until the end-of-pattern opcode.
// Every state either consumes a stream byte or moves the row cursor forward, so the number of steps is bounded.
func (d *patternDecoder) run() error {
	maxSteps := 4*(d.size+int64(d.rows)*int64(d.channels)) + 16
	state := stateReadOpcode
	for steps := int64(0); state != stateDone; steps++ {
		if steps > maxSteps {
			return d.p.Fatalf("pattern stream doesn't terminate after %d steps", steps)
		}
		var err error
		switch state {
		case stateReadOpcode:
			state, err = d.readOpcode()
		case stateDispatchOpcode:
			state, err = d.dispatch()
		case stateAdvanceRow:
			state = d.advanceRow()
		case stateAdvanceChannel:
			state = d.advanceChannel()
		case stateResync:
			d.p.Warnf("pattern %d: channel %d past the last channel, resynchronizing", d.pat, d.channel)
			d.op, err = d.p.Cursor.U8()
			state = stateDispatchOpcode
		}
		if err != nil {
			return err
		}
		if d.consumed() > d.size {
			return d.p.Fatalf("pattern %d: opcode stream overruns its declared size %d", d.pat, d.size)
		}
	}
	return nil
}

func (d *patternDecoder) consumed() int64 {
	return d.p.Cursor.Pos() - d.start
}

func (d *patternDecoder) readOpcode() (patternState, error) {
	if d.repeat > 0 {
		d.repeat--
		if err := d.store(d.last); err != nil {
			return stateDone, err
		}
		return stateAdvanceRow, nil
	}
	var err error
	d.op, err = d.p.Cursor.U8()
	return stateDispatchOpcode, err
}

func (d *patternDecoder) dispatch() (patternState, error) {
	c := d.p.Cursor
	op := d.op
	switch {
	case op == opEnd:
		if d.consumed() != d.size {
			return stateDone, d.p.Fatalf("pattern %d: end of pattern after %d bytes, header says %d", d.pat, d.consumed(), d.size)
		}
		return stateDone, nil

	case op == opSkipChans:
		n, err := c.U8()
		if err != nil {
			return stateDone, err
		}
		d.channel += int(n)
		return stateAdvanceChannel, nil

	case op == opNextChannel:
		return stateAdvanceChannel, nil

	case op == opSkipRows:
		n, err := c.U8()
		if err != nil {
			return stateDone, err
		}
		d.row += int(n)
		return stateAdvanceRow, nil

	case op == opNextRow:
		return stateAdvanceRow, nil

	case op > opEnd && op < opSkipRows:
		e, err := d.p.decodeEvent(op)
		if err != nil {
			return stateDone, err
		}
		return stateAdvanceRow, d.store(e)

	case op > opNextChannel && op < opEnd:
		n, err := c.U8()
		if err != nil {
			return stateDone, err
		}
		e, err := d.p.decodeEvent(op)
		if err != nil {
			return stateDone, err
		}
		if err := d.store(e); err != nil {
			return stateDone, err
		}
		d.last = e
		d.repeat = int(n)
		return stateAdvanceRow, nil

	case op > opNextRow && op < opNextChannel:
		n, err := c.U8()
		if err != nil {
			return stateDone, err
		}
		e, err := d.p.decodeEvent(op)
		if err != nil {
			return stateDone, err
		}
		if err := d.store(e); err != nil {
			return stateDone, err
		}
		for range int(n) {
			d.row++
			if d.row >= d.rows {
				return stateDone, d.p.Fatalf("pattern %d: note repeat runs past row %d", d.pat, d.rows-1)
			}
			if err := d.store(e); err != nil {
				return stateDone, err
			}
		}
		return stateAdvanceRow, nil
	}

	e, err := d.p.decodeUnpacked(op)
	if err != nil {
		return stateDone, err
	}
	return stateAdvanceRow, d.store(e)
}

func (d *patternDecoder) advanceRow() patternState {
	d.row++
	if d.row >= d.rows {
		d.row = 0
		d.repeat = 0
		d.channel++
	}
	if d.channel >= d.channels {
		return stateResync
	}
	return stateReadOpcode
}

func (d *patternDecoder) advanceChannel() patternState {
	d.channel++
	if d.channel >= d.channels {
		d.p.Warnf("pattern %d: bad channel number %d, using channel %d", d.pat, d.channel, d.channels-1)
		d.channel = d.channels - 1
	}
	// The row advance that follows lands on row 0.
	d.row = -1
	return stateAdvanceRow
}

func (d *patternDecoder) store(e song.Event) error {
	dst, err := d.p.sb.Event(d.pat, d.channel, d.row)
	if err != nil {
		return d.p.Check(err)
	}
	*dst = e
	return nil
}

// decodeEvent reads the fields selected by the presence bits of a packed opcode.
func (p *Parser) decodeEvent(op uint8) (song.Event, error) {
	c := p.Cursor
	var e song.Event
	var fxt, fxp uint8
	var haveFxt bool

	if op&hasNote != 0 {
		b, err := c.U8()
		if err != nil {
			return e, err
		}
		if err := p.setNote(&e, b); err != nil {
			return e, err
		}
	}
	if op&hasIns != 0 {
		b, err := c.U8()
		if err != nil {
			return e, err
		}
		if err := p.setInstrument(&e, b); err != nil {
			return e, err
		}
	}
	if op&hasVol != 0 {
		b, err := c.U8()
		if err != nil {
			return e, err
		}
		if err := p.setVolume(&e, b); err != nil {
			return e, err
		}
	}
	if op&hasFxType != 0 {
		b, err := c.U8()
		if err != nil {
			return e, err
		}
		fxt, haveFxt = b-'A', true
	}
	if op&hasFxParam != 0 {
		b, err := c.U8()
		if err != nil {
			return e, err
		}
		fxp = b
	}
	return e, p.setEffect(&e, fxt, fxp, haveFxt)
}

// decodeUnpacked decodes the five-byte unpacked form. The opcode byte itself is the note.
func (p *Parser) decodeUnpacked(note uint8) (song.Event, error) {
	var e song.Event
	raw, err := p.Cursor.Block(4)
	if err != nil {
		return e, err
	}
	ins, vol, fxt, fxp := raw[0], raw[1], raw[2], raw[3]

	if note != noValue {
		if err := p.setNote(&e, note); err != nil {
			return e, err
		}
	}
	if ins != noValue {
		if err := p.setInstrument(&e, ins); err != nil {
			return e, err
		}
	}
	if vol != noValue {
		if err := p.setVolume(&e, vol); err != nil {
			return e, err
		}
	}
	return e, p.setEffect(&e, fxt-'A', fxp, fxt != noValue)
}

func (p *Parser) setNote(e *song.Event, b uint8) error {
	e.HasNote = true
	if b == keyOffRaw {
		e.Note = song.NoteKeyOff
		return nil
	}
	n := int(b) + noteBase
	if n > song.MaxNote {
		return p.Fatalf("note %d out of range", n)
	}
	e.Note = song.Note(n)
	return nil
}

func (p *Parser) setInstrument(e *song.Event, b uint8) error {
	ins := int(b) + 1
	if ins > maxIns {
		return p.Fatalf("instrument %d out of range", ins)
	}
	e.Instrument = uint8(ins)
	e.HasInstrument = true
	return nil
}

func (p *Parser) setVolume(e *song.Event, b uint8) error {
	if b > song.MaxVolume {
		return p.Fatalf("volume %d out of range", b)
	}
	e.Volume = b
	e.HasVolume = true
	return nil
}

// setEffect translates the effect. Without an effect type the parameter is dropped.
func (p *Parser) setEffect(e *song.Event, fxt, fxp uint8, present bool) error {
	if !present {
		e.SetEffect(song.EffectNone, 0)
		return nil
	}
	if _, err := fx.Liquid.Apply(e, fxt, fxp); err != nil {
		return p.Fatalf("%v", err)
	}
	return nil
}
