// Package protracker decodes the classic 4-channel tracker layout that several packers and containers embed:
// 4-byte pattern events, 30-byte instrument records and the 1084-byte module header.
package protracker

import (
	"fmt"
	"math"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/fx"
	"github.com/QEStudios/ModLoader/song"
)

const (
	// Period of the note 13696/2^n sits exactly on a C.
	periodBase = 13696.0

	// BaseRate is the playback rate of a classic sample at its reference note.
	BaseRate = 8363

	EventSize = 4
	Rows      = 64
	Channels  = 4
)

// PeriodToNote converts an Amiga period to a 1-based note number. A zero period means no note.
func PeriodToNote(period int) song.Note {
	if period <= 0 {
		return 0
	}
	n := math.Round(12*math.Log2(periodBase/float64(period))) + 1
	if n < 0 || n > 255 {
		return 0xff
	}
	return song.Note(n)
}

// ConvertEvent converts one classic packed event:
//
//	byte 0: instrument high nibble | period bits 8-11
//	byte 1: period bits 0-7
//	byte 2: instrument low nibble | effect
//	byte 3: effect parameter
func ConvertEvent(raw []byte) (song.Event, error) {
	var e song.Event
	if len(raw) < EventSize {
		return e, fmt.Errorf("classic event needs %d bytes, got %d: %w", EventSize, len(raw), parser.ErrTruncatedInput)
	}

	period := int(raw[0]&0x0f)<<8 | int(raw[1])
	if period != 0 {
		note := PeriodToNote(period)
		if note < 1 || note > song.MaxNote {
			return e, fmt.Errorf("period %d gives note %d out of range: %w", period, note, parser.ErrCorruptStructure)
		}
		e.Note = note
		e.HasNote = true
	}

	if ins := raw[0]&0xf0 | raw[2]>>4; ins != 0 {
		e.Instrument = ins
		e.HasInstrument = true
	}

	code, param := raw[2]&0x0f, raw[3]
	if param == 0 {
		// Effects that continue the previous slide when given a zero parameter.
		switch code {
		case 0x5:
			code = 0x3
		case 0x6:
			code = 0x4
		case 0x1, 0x2, 0xa:
			code = 0x0
		}
	}
	if code == 0 && param == 0 {
		return e, nil
	}
	if _, err := fx.Protracker.Apply(&e, code, param); err != nil {
		return e, err
	}
	return e, nil
}
