package protracker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
	"github.com/davecgh/go-spew/spew"
)

func TestPeriodToNote(t *testing.T) {
	tests := []struct {
		period int
		want   song.Note
	}{
		{0, 0},
		{856, 49},
		{428, 61},
		{214, 73},
		{113, 84},
	}
	for _, tt := range tests {
		if got := PeriodToNote(tt.period); got != tt.want {
			t.Errorf("PeriodToNote(%d) = %d, want %d", tt.period, got, tt.want)
		}
	}
}

func TestConvertEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want song.Event
	}{
		{
			name: "empty",
			raw:  []byte{0, 0, 0, 0},
			want: song.Event{},
		},
		{
			name: "note, split instrument and volume",
			raw:  []byte{0x11, 0xac, 0x2c, 0x20}, // period 428, instrument 0x12, C20
			want: song.Event{Note: 61, HasNote: true, Instrument: 0x12, HasInstrument: true, Effect: song.EffectVolume, Param: 0x20},
		},
		{
			name: "arpeggio",
			raw:  []byte{0, 0, 0x00, 0x37},
			want: song.Event{Effect: song.EffectArpeggio, Param: 0x37},
		},
		{
			name: "tone porta + vol slide without parameter continues the porta",
			raw:  []byte{0, 0, 0x05, 0x00},
			want: song.Event{Effect: song.EffectTonePorta},
		},
		{
			name: "vibrato + vol slide without parameter continues the vibrato",
			raw:  []byte{0, 0, 0x06, 0x00},
			want: song.Event{Effect: song.EffectVibrato},
		},
		{
			name: "slides without parameter do nothing",
			raw:  []byte{0, 0, 0x0a, 0x00},
			want: song.Event{},
		},
		{
			name: "extended",
			raw:  []byte{0, 0, 0x0e, 0x93},
			want: song.Event{Effect: song.EffectExtended, Param: song.ExtendedParam(song.ExtRetrig, 3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertEvent(tt.raw)
			if err != nil {
				t.Fatalf("ConvertEvent: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", spew.Sdump(got), spew.Sdump(tt.want))
			}
		})
	}
}

func TestConvertEventErrors(t *testing.T) {
	if _, err := ConvertEvent([]byte{0, 1, 0}); !errors.Is(err, parser.ErrTruncatedInput) {
		t.Errorf("short event: got %v, want ErrTruncatedInput", err)
	}
	// Period 1 is far above the highest note.
	if _, err := ConvertEvent([]byte{0, 1, 0, 0}); !errors.Is(err, parser.ErrCorruptStructure) {
		t.Errorf("period 1: got %v, want ErrCorruptStructure", err)
	}
}

func TestInstrumentApply(t *testing.T) {
	tests := []struct {
		name        string
		rec         InstrumentRecord
		wantSample  song.Sample
		wantWarning bool
		wantSubs    int
	}{
		{
			name:       "looped",
			rec:        InstrumentRecord{Name: "bass", Size: 100, Finetune: 0x0f, Volume: 64, LoopStart: 10, LoopSize: 20},
			wantSample: song.Sample{Name: "bass", Length: 200, LoopStart: 20, LoopEnd: 60, Flags: song.SampleLoop, Rate: BaseRate},
			wantSubs:   1,
		},
		{
			name:       "one-word loop size means no loop",
			rec:        InstrumentRecord{Size: 100, LoopSize: 1},
			wantSample: song.Sample{Length: 200, LoopStart: 0, LoopEnd: 2, Rate: BaseRate},
			wantSubs:   1,
		},
		{
			name:        "loop past end is clamped",
			rec:         InstrumentRecord{Size: 10, LoopStart: 5, LoopSize: 10},
			wantSample:  song.Sample{Length: 20, LoopStart: 10, LoopEnd: 20, Flags: song.SampleLoop, Rate: BaseRate},
			wantWarning: true,
			wantSubs:    1,
		},
		{
			name:       "empty slot",
			rec:        InstrumentRecord{Name: "comment line"},
			wantSample: song.Sample{Name: "comment line", Rate: BaseRate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ins song.Instrument
			var smp song.Sample
			warning, err := tt.rec.Apply(&ins, &smp, 3)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if (warning != "") != tt.wantWarning {
				t.Errorf("warning = %q", warning)
			}
			if smp != tt.wantSample {
				t.Errorf("sample = %s, want %s", spew.Sdump(smp), spew.Sdump(tt.wantSample))
			}
			if len(ins.Subs) != tt.wantSubs {
				t.Fatalf("got %d sub-instruments, want %d", len(ins.Subs), tt.wantSubs)
			}
			if tt.wantSubs > 0 && ins.Subs[0].Sample != 3 {
				t.Errorf("sub-instrument sample = %d, want 3", ins.Subs[0].Sample)
			}
		})
	}

	var ins song.Instrument
	var smp song.Sample
	rec := InstrumentRecord{Size: 1, Finetune: 0x0f, Volume: 10}
	if _, err := rec.Apply(&ins, &smp, 0); err != nil {
		t.Fatal(err)
	}
	if got := ins.Subs[0].Finetune; got != -16 {
		t.Errorf("finetune nibble 0xf = %d, want -16", got)
	}
	if ins.Release != Release {
		t.Errorf("release = 0x%x, want 0x%x", ins.Release, Release)
	}

	rec = InstrumentRecord{Volume: 65}
	if _, err := rec.Apply(&ins, &smp, 0); !errors.Is(err, parser.ErrCorruptStructure) {
		t.Errorf("volume 65: got %v, want ErrCorruptStructure", err)
	}
}

// classicModule builds a classic module with the given order list (all 128 slots are
// used for the pattern count) and one 2-word sample in instrument 1.
func classicModule(length uint8, orders []uint8) []byte {
	var b bytes.Buffer
	title := make([]byte, TitleSize)
	copy(title, "classic")
	b.Write(title)
	for i := range NumInstruments {
		name := make([]byte, NameSize)
		var size uint16
		if i == 0 {
			copy(name, "lead")
			size = 2
		}
		b.Write(name)
		binary.Write(&b, binary.BigEndian, size)
		b.Write([]byte{0, 48})                              // finetune, volume
		binary.Write(&b, binary.BigEndian, [2]uint16{0, 1}) // loop start, loop size
	}
	b.WriteByte(length)
	b.WriteByte(0x7f)
	slots := make([]byte, OrderSlots)
	copy(slots, orders)
	b.Write(slots)
	b.WriteString("M.K.")

	numPatterns := 0
	for _, o := range slots {
		numPatterns = max(numPatterns, int(o)+1)
	}
	for p := range numPatterns {
		pat := make([]byte, Rows*Channels*EventSize)
		// Row 1, channel 2: period 428, instrument 1, speed set to the pattern number.
		ev := pat[(1*Channels+2)*EventSize:]
		copy(ev, []byte{0x01, 0xac, 0x1f, byte(p)})
		b.Write(pat)
	}
	b.Write([]byte{0x00, 0x7f, 0x80, 0xff})
	return b.Bytes()
}

func decodeClassic(t *testing.T, data []byte) (*parser.Result, *Header) {
	t.Helper()
	var b parser.Base
	b.Init(bytes.NewReader(data), parser.Config{Logger: log.New(io.Discard, "", 0)})
	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	sb := song.NewBuilder()
	h, err := Decode(&b, sb)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	res, err := b.Result(sb)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	return res, h
}

func TestDecodeModule(t *testing.T) {
	res, h := decodeClassic(t, classicModule(2, []uint8{0, 11}))
	s := res.Song

	if h.Title != "classic" || string(h.Magic[:]) != "M.K." {
		t.Errorf("header = %s", spew.Sdump(h))
	}
	if got := s.PatternCount(); got != 12 {
		t.Fatalf("pattern count = %d, want 12", got)
	}
	for i, p := range s.Patterns {
		if p.Rows != Rows || len(p.Tracks) != Channels {
			t.Errorf("pattern %d is %d rows x %d channels", i, p.Rows, len(p.Tracks))
		}
	}
	if len(s.Orders) != 2 || s.Orders[1] != 11 {
		t.Errorf("orders = %v", s.Orders)
	}
	if s.Restart != 0 {
		t.Errorf("restart = %d, want 0", s.Restart)
	}
	if s.Flags&song.ModRange == 0 {
		t.Errorf("ModRange flag not set")
	}

	want := song.Event{Note: 61, HasNote: true, Instrument: 1, HasInstrument: true, Effect: song.EffectSpeed, Param: 11}
	if got := *s.Patterns[11].Event(2, 1); got != want {
		t.Errorf("pattern 11 row 1 channel 2 = %s, want %s", got, want)
	}
	if !s.Patterns[11].Event(1, 2).IsEmpty() {
		t.Errorf("pattern 11 row 2 channel 1 should be empty")
	}

	if got := s.SampleData[0]; len(got) != 4 || got[1] != 0x7f00 || got[2] != -0x8000 {
		t.Errorf("sample 0 = %v", got)
	}
	if s.Instruments[0].Name != "lead" || len(s.Instruments[0].Subs) != 1 || s.Instruments[0].Subs[0].Volume != 48 {
		t.Errorf("instrument 0 = %s", spew.Sdump(s.Instruments[0]))
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := classicModule(1, []uint8{0})
	var b parser.Base
	b.Init(bytes.NewReader(data[:HeaderSize+100]), parser.Config{Logger: log.New(io.Discard, "", 0)})
	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(&b, song.NewBuilder()); !errors.Is(err, parser.ErrTruncatedInput) {
		t.Errorf("got %v, want ErrTruncatedInput", err)
	}
}
