package liquid

import (
	"encoding/binary"
	"math"

	"github.com/QEStudios/ModLoader/song"
)

const (
	instrumentTag      = "LDSS"
	emptyInstrumentTag = "????"

	// Size of an LDSS instrument header as this decoder reads it, tag included.
	instrumentHeaderSize = 0x90

	flag16Bit = 0x01

	// C2 speed of an untransposed, untuned sample.
	referenceRate = 8363
)

// InstrumentHeader is an LDSS instrument header.
type InstrumentHeader struct {
	Version    uint16
	Name       string
	Editor     string
	Author     string
	HardwareID uint8
	Length     uint32 // In bytes.
	LoopStart  uint32 // In bytes.
	LoopEnd    uint32 // In bytes; zero means no loop.
	C2Speed    uint32
	Volume     uint8
	Flags      uint8
	Pan        uint8
	MidiIns    uint8
	GlobalVol  uint8
	Chord      uint8
	HdrSize    uint16
	Comp       uint16
	CRC        uint32
	MidiChan   uint8
	Filename   string
}

// readInstrument reads instrument slot i and its sample data.
func (p *Parser) readInstrument(i int) error {
	c := p.Cursor
	tag, err := c.Tag()
	if err != nil {
		return err
	}
	switch string(tag[:]) {
	case emptyInstrumentTag:
		return nil
	case instrumentTag:
	default:
		return p.Fatalf("bad instrument tag %q", tag[:])
	}

	var li InstrumentHeader
	if li.Version, err = c.U16(binary.LittleEndian); err != nil {
		return err
	}
	if li.Name, err = c.String(30); err != nil {
		return err
	}
	if li.Editor, err = c.String(20); err != nil {
		return err
	}
	if li.Author, err = c.String(20); err != nil {
		return err
	}
	if li.HardwareID, err = c.U8(); err != nil {
		return err
	}
	for _, v := range []*uint32{&li.Length, &li.LoopStart, &li.LoopEnd, &li.C2Speed} {
		if *v, err = c.U32(binary.LittleEndian); err != nil {
			return err
		}
	}
	for _, v := range []*uint8{&li.Volume, &li.Flags, &li.Pan, &li.MidiIns, &li.GlobalVol, &li.Chord} {
		if *v, err = c.U8(); err != nil {
			return err
		}
	}
	if li.HdrSize, err = c.U16(binary.LittleEndian); err != nil {
		return err
	}
	if li.Comp, err = c.U16(binary.LittleEndian); err != nil {
		return err
	}
	if li.CRC, err = c.U32(binary.LittleEndian); err != nil {
		return err
	}
	if li.MidiChan, err = c.U8(); err != nil {
		return err
	}
	if err := c.Skip(11); err != nil { // reserved
		return err
	}
	if li.Filename, err = c.String(25); err != nil {
		return err
	}

	if err := p.applyInstrument(i, &li); err != nil {
		return err
	}

	skip := int64(li.HdrSize) - instrumentHeaderSize
	if skip < 0 {
		return p.Fatalf("instrument header size %d is smaller than 0x%x", li.HdrSize, instrumentHeaderSize)
	}
	if err := c.Skip(skip); err != nil {
		return err
	}

	_, smp, err := p.sb.Instrument(i)
	if err != nil {
		return p.Check(err)
	}
	if smp.Length == 0 {
		return nil
	}
	return p.LoadSample(c, p.sb, i, int(li.C2Speed))
}

func (p *Parser) applyInstrument(i int, li *InstrumentHeader) error {
	ins, smp, err := p.sb.Instrument(i)
	if err != nil {
		return p.Check(err)
	}
	if li.Volume > song.MaxVolume {
		p.Warnf("instrument %d volume %d out of range, clamped", i, li.Volume)
		li.Volume = song.MaxVolume
	}

	smp.Name = li.Name
	smp.Rate = int(li.C2Speed)
	if li.Flags&flag16Bit != 0 {
		smp.Flags |= song.Sample16Bit
	}
	if li.LoopEnd > 0 {
		smp.Flags |= song.SampleLoop
	}
	frame := uint32(smp.FrameSize())
	smp.Length = int(li.Length / frame)
	smp.LoopStart = int(li.LoopStart / frame)
	smp.LoopEnd = int(li.LoopEnd / frame)
	if smp.Looping() {
		if smp.LoopEnd > smp.Length {
			p.Warnf("instrument %d loop end %d past sample end %d, clamped", i, smp.LoopEnd, smp.Length)
			smp.LoopEnd = smp.Length
		}
		if smp.LoopEnd <= smp.LoopStart {
			p.Warnf("instrument %d has an empty loop, loop disabled", i)
			smp.Flags &^= song.SampleLoop
			smp.LoopStart, smp.LoopEnd = 0, 0
		}
	}

	transpose, finetune := C2SpeedToNote(int(li.C2Speed))
	ins.Name = li.Name
	ins.Volume = song.MaxVolume
	ins.Subs = nil
	if smp.Length > 0 {
		ins.Subs = []song.SubInstrument{{
			Volume:       int(li.Volume),
			GlobalVolume: song.MaxVolume,
			Pan:          int(li.Pan),
			Sample:       i,
			Transpose:    transpose,
			Finetune:     finetune,
		}}
	}
	return nil
}

// C2SpeedToNote converts a sample's C2 playback rate to a transpose in semitones and a finetune in 1/128 semitones.
func C2SpeedToNote(c2spd int) (transpose, finetune int) {
	if c2spd <= 0 {
		return 0, 0
	}
	c := int(1536 * math.Log2(float64(c2spd)/referenceRate))
	return c / 128, c % 128
}
