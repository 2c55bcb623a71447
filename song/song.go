package song

import (
	"fmt"
	"time"
)

const (
	MaxOrders  = 256 // Longest order list any supported format can carry.
	MaxNote    = 107 // Highest playable note (1-based semitone number).
	MaxVolume  = 64  // Highest event/sample volume.
	DefaultPan = 0x80
)

// Note is a 1-based semitone number in 1..MaxNote, or NoteKeyOff.
type Note uint8

// NoteKeyOff stops the currently playing note on a channel.
const NoteKeyOff Note = 0x81

func (n Note) isValid() bool {
	return (n >= 1 && n <= MaxNote) || n == NoteKeyOff
}

// Flags describing how a song's values should be interpreted by a player.
type Flags uint8

const (
	// InstrumentVolume means instrument volumes override sample volumes.
	InstrumentVolume Flags = 1 << iota
	// ModRange means notes are limited to the classic Amiga period range.
	ModRange
)

// A single song decoded from a module file.
// It is created once per decode call and owned by the caller afterwards.
type Song struct {
	Title   string // The name of the song.
	Author  string // The author of the song (can be blank).
	Tracker string // The tracker that saved the file (can be blank).
	Format  string // Human readable format/type string, e.g. "Liquid module 1.00".

	Channels     int // Number of channels every pattern has.
	Speed        int // Initial ticks per row.
	BPM          int // Initial tempo.
	GlobalVolume int
	Restart      int // Order list position to restart from when the song loops.
	Flags        Flags

	// Per-channel initial pan (0..255) and volume (0..64).
	ChannelPan    []uint8
	ChannelVolume []uint8

	// The order list, mapping playback position to pattern index.
	Orders []uint8

	Patterns    []*Pattern
	Instruments []*Instrument
	Samples     []*Sample

	// Decoded sample payloads, indexed like Samples. A nil entry means no payload was loaded.
	SampleData [][]int16

	// Informational only; zero when the format doesn't carry them.
	Created  time.Time
	PlayTime time.Duration
}

// PatternCount returns the number of patterns in the song.
func (s *Song) PatternCount() int { return len(s.Patterns) }

// InstrumentCount returns the number of instrument slots in the song.
func (s *Song) InstrumentCount() int { return len(s.Instruments) }

// A single pattern. Empty patterns (stored as a sentinel in some formats) have zero rows and no tracks.
type Pattern struct {
	Name   string
	Rows   int
	Tracks []*Track // One track per channel.
}

// Empty reports whether the pattern was stored as an empty sentinel.
func (p *Pattern) Empty() bool {
	return p.Rows == 0
}

// Event returns the event at channel ch, row r. It panics if either is out of range.
func (p *Pattern) Event(ch, r int) *Event {
	return &p.Tracks[ch].Events[r]
}

// A track holds one channel's events for a pattern.
type Track struct {
	Events []Event // Length is always the pattern's row count.
}

// A single cell of a pattern.
// Optional fields have a matching Has* bit so a present zero can be told apart from an unset field.
type Event struct {
	Note    Note
	HasNote bool

	Instrument    uint8 // 1-based instrument reference.
	HasInstrument bool

	Volume    uint8 // 0..64.
	HasVolume bool

	Effect Effect // EffectNone if there is no effect.
	Param  uint8  // Always 0 when Effect is EffectNone.
}

// IsEmpty reports whether the event carries nothing at all.
func (e *Event) IsEmpty() bool {
	return !e.HasNote && !e.HasInstrument && !e.HasVolume && e.Effect == EffectNone
}

// SetEffect sets the effect and parameter, forcing the parameter to 0 for EffectNone.
func (e *Event) SetEffect(fx Effect, param uint8) {
	if fx == EffectNone {
		param = 0
	}
	e.Effect = fx
	e.Param = param
}

// Validate checks the event's present fields against the model's ranges.
func (e *Event) Validate(instruments int) error {
	if e.HasNote && !e.Note.isValid() {
		return fmt.Errorf("note %d out of range", e.Note)
	}
	if e.HasInstrument && (e.Instrument == 0 || int(e.Instrument) > instruments) {
		return fmt.Errorf("instrument %d out of range 1..%d", e.Instrument, instruments)
	}
	if e.HasVolume && e.Volume > MaxVolume {
		return fmt.Errorf("volume %d out of range 0..%d", e.Volume, MaxVolume)
	}
	if e.Effect == EffectNone && e.Param != 0 {
		return fmt.Errorf("parameter 0x%02x set without an effect", e.Param)
	}
	return nil
}

// An instrument. Every supported format stores exactly one sub-instrument per instrument,
// but the model allows more.
type Instrument struct {
	Name    string
	Volume  int // Instrument volume (0..64).
	Release int // Release/fadeout hint, 0 if unused.

	Subs []SubInstrument
}

// A sub-instrument binds an instrument to a sample slot with playback settings.
type SubInstrument struct {
	Volume       int // 0..64.
	GlobalVolume int // 0..64.
	Pan          int // 0..255, DefaultPan is centre.
	Sample       int // Index into Song.Samples.
	Transpose    int // Semitones.
	Finetune     int // 1/128 semitone units (signed).
}

// SampleFlags describe a sample's payload format and looping.
type SampleFlags uint8

const (
	Sample16Bit SampleFlags = 1 << iota
	SampleLoop
)

// A sample descriptor. Lengths and loop points are in sample frames.
// The payload itself is loaded separately into Song.SampleData.
type Sample struct {
	Name      string
	Length    int
	LoopStart int
	LoopEnd   int
	Flags     SampleFlags
	Rate      int // Base sample rate in Hz, 0 if the format doesn't store one.
}

// Looping reports whether the sample loops.
func (s *Sample) Looping() bool { return s.Flags&SampleLoop != 0 }

// Is16Bit reports whether the sample payload is 16 bits per frame.
func (s *Sample) Is16Bit() bool { return s.Flags&Sample16Bit != 0 }

// FrameSize returns the number of bytes one frame of payload takes on disk.
func (s *Sample) FrameSize() int {
	if s.Is16Bit() {
		return 2
	}
	return 1
}
