package song

import (
	"errors"
	"fmt"
)

// MaxChannels is the largest channel count a song may declare.
const MaxChannels = 256

// ErrOutOfRange is returned by Builder methods when an index or count falls outside what the song declared.
var ErrOutOfRange = errors.New("index out of range")

// Builder is the mutable decode context a parser fills in.
// Every index it hands out is checked against the counts declared so far,
// so a decoder can never write outside the song it declared.
type Builder struct {
	song     Song
	finished bool
}

// NewBuilder returns a builder for an empty song with classic defaults.
func NewBuilder() *Builder {
	return &Builder{
		song: Song{
			Speed:        6,
			BPM:          125,
			GlobalVolume: 64,
		},
	}
}

// Song gives direct access to the header fields of the song under construction.
func (b *Builder) Song() *Song {
	return &b.song
}

// SetChannels declares the channel count and resets the channel pan/volume tables to defaults.
func (b *Builder) SetChannels(n int) error {
	if n < 1 || n > MaxChannels {
		return fmt.Errorf("channel count %d: %w (1..%d)", n, ErrOutOfRange, MaxChannels)
	}
	b.song.Channels = n
	b.song.ChannelPan = make([]uint8, n)
	b.song.ChannelVolume = make([]uint8, n)
	for i := range n {
		b.song.ChannelPan[i] = DefaultPan
		b.song.ChannelVolume[i] = MaxVolume
	}
	return nil
}

// SetOrders copies the order list into the song.
func (b *Builder) SetOrders(orders []uint8) error {
	if len(orders) > MaxOrders {
		return fmt.Errorf("order list length %d: %w (max %d)", len(orders), ErrOutOfRange, MaxOrders)
	}
	b.song.Orders = append([]uint8(nil), orders...)
	return nil
}

// SetPatternCount declares how many patterns the song has. Patterns are filled in with NewPattern or EmptyPattern.
func (b *Builder) SetPatternCount(n int) error {
	if n < 0 || n > 0xffff {
		return fmt.Errorf("pattern count %d: %w", n, ErrOutOfRange)
	}
	b.song.Patterns = make([]*Pattern, n)
	return nil
}

// SetInstrumentCount declares the number of instrument slots; each slot owns the sample with the same index.
func (b *Builder) SetInstrumentCount(n int) error {
	if n < 0 || n > 0xffff {
		return fmt.Errorf("instrument count %d: %w", n, ErrOutOfRange)
	}
	b.song.Instruments = make([]*Instrument, n)
	b.song.Samples = make([]*Sample, n)
	b.song.SampleData = make([][]int16, n)
	for i := range n {
		b.song.Instruments[i] = &Instrument{}
		b.song.Samples[i] = &Sample{}
	}
	return nil
}

// NewPattern allocates pattern i with the given row count and one empty track per channel.
func (b *Builder) NewPattern(i, rows int) (*Pattern, error) {
	if i < 0 || i >= len(b.song.Patterns) {
		return nil, fmt.Errorf("pattern %d: %w (song has %d)", i, ErrOutOfRange, len(b.song.Patterns))
	}
	if b.song.Channels == 0 {
		return nil, fmt.Errorf("pattern %d allocated before the channel count was set", i)
	}
	if rows < 1 || rows > 0xffff {
		return nil, fmt.Errorf("pattern %d row count %d: %w", i, rows, ErrOutOfRange)
	}
	p := &Pattern{Rows: rows, Tracks: make([]*Track, b.song.Channels)}
	for ch := range p.Tracks {
		p.Tracks[ch] = &Track{Events: make([]Event, rows)}
	}
	b.song.Patterns[i] = p
	return p, nil
}

// EmptyPattern marks pattern i as stored empty: no rows are materialized.
func (b *Builder) EmptyPattern(i int) error {
	if i < 0 || i >= len(b.song.Patterns) {
		return fmt.Errorf("pattern %d: %w (song has %d)", i, ErrOutOfRange, len(b.song.Patterns))
	}
	b.song.Patterns[i] = &Pattern{}
	return nil
}

// Event returns the event cell at pattern pat, channel ch, row row.
func (b *Builder) Event(pat, ch, row int) (*Event, error) {
	if pat < 0 || pat >= len(b.song.Patterns) || b.song.Patterns[pat] == nil {
		return nil, fmt.Errorf("pattern %d: %w", pat, ErrOutOfRange)
	}
	p := b.song.Patterns[pat]
	if ch < 0 || ch >= len(p.Tracks) {
		return nil, fmt.Errorf("channel %d: %w (song has %d)", ch, ErrOutOfRange, len(p.Tracks))
	}
	if row < 0 || row >= p.Rows {
		return nil, fmt.Errorf("row %d: %w (pattern has %d)", row, ErrOutOfRange, p.Rows)
	}
	return &p.Tracks[ch].Events[row], nil
}

// Instrument returns instrument slot i and its sample descriptor.
func (b *Builder) Instrument(i int) (*Instrument, *Sample, error) {
	if i < 0 || i >= len(b.song.Instruments) {
		return nil, nil, fmt.Errorf("instrument %d: %w (song has %d)", i, ErrOutOfRange, len(b.song.Instruments))
	}
	return b.song.Instruments[i], b.song.Samples[i], nil
}

// SetSampleData stores the payload loaded for sample slot i.
func (b *Builder) SetSampleData(i int, data []int16) error {
	if i < 0 || i >= len(b.song.SampleData) {
		return fmt.Errorf("sample %d: %w (song has %d)", i, ErrOutOfRange, len(b.song.SampleData))
	}
	b.song.SampleData[i] = data
	return nil
}

// Finish checks the song's cross-references and hands it over to the caller.
// The builder can't be used afterwards.
func (b *Builder) Finish() (*Song, error) {
	if b.finished {
		return nil, fmt.Errorf("builder already finished")
	}
	s := &b.song
	if s.Channels == 0 {
		return nil, fmt.Errorf("song has no channels")
	}
	for pos, o := range s.Orders {
		if int(o) >= len(s.Patterns) {
			return nil, fmt.Errorf("order %d references pattern %d: %w (song has %d)", pos, o, ErrOutOfRange, len(s.Patterns))
		}
	}
	if s.Restart < 0 || (len(s.Orders) > 0 && s.Restart >= len(s.Orders)) {
		s.Restart = 0
	}
	for i, p := range s.Patterns {
		if p == nil {
			return nil, fmt.Errorf("pattern %d was never decoded", i)
		}
		for ch, t := range p.Tracks {
			for row := range t.Events {
				if err := t.Events[row].Validate(len(s.Instruments)); err != nil {
					return nil, fmt.Errorf("pattern %d channel %d row %d: %w", i, ch, row, err)
				}
			}
		}
	}
	for i, smp := range s.Samples {
		if smp.Looping() && smp.LoopEnd < smp.LoopStart {
			return nil, fmt.Errorf("sample %d loop end %d before loop start %d", i, smp.LoopEnd, smp.LoopStart)
		}
	}
	b.finished = true
	return s, nil
}
