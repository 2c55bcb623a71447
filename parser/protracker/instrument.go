package protracker

import (
	"encoding/binary"
	"fmt"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
)

const (
	NumInstruments = 31
	NameSize       = 22
	RecordSize     = NameSize + 8

	// Release hint given to every classic instrument.
	Release = 0xfff
)

// InstrumentRecord is the on-disk instrument header. Lengths are in 16-bit words.
type InstrumentRecord struct {
	Name      string
	Size      uint16
	Finetune  uint8 // Signed 4-bit value in the low nibble.
	Volume    uint8
	LoopStart uint16
	LoopSize  uint16
}

// ReadInstrumentRecord reads one record. withName is false for packers that strip instrument names.
func ReadInstrumentRecord(c *parser.Cursor, withName bool) (InstrumentRecord, error) {
	var rec InstrumentRecord
	var err error
	if withName {
		if rec.Name, err = c.String(NameSize); err != nil {
			return rec, err
		}
	}
	if rec.Size, err = c.U16(binary.BigEndian); err != nil {
		return rec, err
	}
	if rec.Finetune, err = c.U8(); err != nil {
		return rec, err
	}
	if rec.Volume, err = c.U8(); err != nil {
		return rec, err
	}
	if rec.LoopStart, err = c.U16(binary.BigEndian); err != nil {
		return rec, err
	}
	if rec.LoopSize, err = c.U16(binary.BigEndian); err != nil {
		return rec, err
	}
	return rec, nil
}

// Apply fills in an instrument slot and its sample descriptor.
// It returns a non-empty message if the loop had to be adjusted to fit the sample.
func (rec *InstrumentRecord) Apply(ins *song.Instrument, smp *song.Sample, slot int) (warning string, err error) {
	if rec.Volume > song.MaxVolume {
		return "", fmt.Errorf("instrument %d volume %d out of range: %w", slot, rec.Volume, parser.ErrCorruptStructure)
	}

	smp.Name = rec.Name
	smp.Length = 2 * int(rec.Size)
	smp.LoopStart = 2 * int(rec.LoopStart)
	smp.LoopEnd = smp.LoopStart + 2*int(rec.LoopSize)
	smp.Rate = BaseRate
	if rec.LoopSize > 1 {
		smp.Flags |= song.SampleLoop
	}
	if smp.Looping() && smp.LoopEnd > smp.Length {
		warning = fmt.Sprintf("instrument %d loop end %d past sample end %d, clamped", slot, smp.LoopEnd, smp.Length)
		smp.LoopEnd = smp.Length
		if smp.LoopEnd <= smp.LoopStart {
			smp.Flags &^= song.SampleLoop
			smp.LoopStart, smp.LoopEnd = 0, 0
		}
	}

	ins.Name = rec.Name
	ins.Volume = song.MaxVolume
	ins.Release = Release
	ins.Subs = nil
	if smp.Length > 0 {
		ins.Subs = []song.SubInstrument{{
			Volume:       int(rec.Volume),
			GlobalVolume: song.MaxVolume,
			Pan:          song.DefaultPan,
			Sample:       slot,
			Finetune:     int(int8(rec.Finetune << 4)),
		}}
	}
	return warning, nil
}
