package pt3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/protracker"
	"github.com/QEStudios/ModLoader/song"
	"github.com/davecgh/go-spew/spew"
)

func pad(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// classic builds a sample-less classic module. Pattern p has a note on row 0, channel 3.
func classic(orders []byte) []byte {
	var b bytes.Buffer
	b.Write(pad("classic", protracker.TitleSize))
	b.Write(make([]byte, protracker.NumInstruments*protracker.RecordSize))
	b.WriteByte(byte(len(orders)))
	b.WriteByte(0)
	b.Write(pad(string(orders), protracker.OrderSlots))
	b.WriteString("M.K.")

	numPatterns := 0
	for _, o := range orders {
		numPatterns = max(numPatterns, int(o)+1)
	}
	for range numPatterns {
		pat := make([]byte, protracker.Rows*protracker.Channels*protracker.EventSize)
		copy(pat[3*protracker.EventSize:], []byte{0x01, 0xac, 0x00, 0x00}) // period 428
		b.Write(pat)
	}
	return b.Bytes()
}

func chunk(tag string, payload []byte) []byte {
	b := []byte(tag)
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)+8))
	return append(b, payload...)
}

func form(chunks ...[]byte) []byte {
	body := []byte(modlTag)
	for _, c := range chunks {
		body = append(body, c...)
	}
	b := []byte(formTag)
	b = binary.BigEndian.AppendUint32(b, uint32(len(body)))
	return append(b, body...)
}

type infoFields struct {
	length, globalVolume, flags uint16
}

func info(f infoFields) []byte {
	b := pad("info title", infoNameSize)
	words := []uint16{
		31, f.length, 12, f.globalVolume, 125, f.flags,
		17, 3, 94, 13, 5, 9, // 17/03/94 13:05:09
		0, 3, 25, // 00:03:25
	}
	for _, w := range words {
		b = binary.BigEndian.AppendUint16(b, w)
	}
	return b
}

var (
	version = chunk("VERS", []byte{0, 0, 0, 0, 'P', 'T', '3', '.', '0', '0'})
	ptdt    = chunk("PTDT", classic([]byte{0, 11}))
)

func parse(data []byte) (*parser.Result, error) {
	return NewParser(bytes.NewReader(data), parser.Config{Logger: log.New(io.Discard, "", 0)}).Parse()
}

func TestFormatTest(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		match bool
	}{
		{"pt3", form(version, ptdt), true},
		{"other FORM", append([]byte("FORM\x00\x00\x00\x04ILBM"), make([]byte, 8)...), false},
		{"riff", []byte("RIFF\x00\x00\x00\x04WAVE"), false},
		{"short", []byte("FORM"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			err := Format{}.Test(r)
			if tt.match && err != nil {
				t.Errorf("Test: %v", err)
			}
			if !tt.match && !errors.Is(err, parser.ErrFormatMismatch) {
				t.Errorf("Test: got %v, want ErrFormatMismatch", err)
			}
			if pos, _ := r.Seek(0, io.SeekCurrent); pos != 0 {
				t.Errorf("Test left the reader at %d", pos)
			}
		})
	}
}

func TestParse(t *testing.T) {
	in := form(
		version,
		chunk("INFO", info(infoFields{length: 2, globalVolume: 64})),
		chunk("CMNT", []byte("hello")),
		chunk("ANNO", []byte("skipped")),
		ptdt,
	)
	res, err := parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: %v", res.Warnings)
	}
	s := res.Song

	if s.Format != "PT3.00 (Protracker IFFMODL)" {
		t.Errorf("format = %q", s.Format)
	}
	if s.Title != "info title" {
		t.Errorf("title = %q, want the INFO title", s.Title)
	}
	if s.GlobalVolume != 64 || s.BPM != 125 || s.Channels != 4 {
		t.Errorf("global volume %d, bpm %d, %d channels", s.GlobalVolume, s.BPM, s.Channels)
	}
	if want := time.Date(1994, time.March, 17, 13, 5, 9, 0, time.UTC); !s.Created.Equal(want) {
		t.Errorf("created = %v, want %v", s.Created, want)
	}
	if want := 3*time.Minute + 25*time.Second; s.PlayTime != want {
		t.Errorf("play time = %v, want %v", s.PlayTime, want)
	}

	// The highest order is 11, so 12 patterns are stored.
	if s.PatternCount() != 12 {
		t.Fatalf("pattern count = %d, want 12", s.PatternCount())
	}
	for i, p := range s.Patterns {
		if p.Rows != 64 || len(p.Tracks) != 4 {
			t.Errorf("pattern %d is %d rows x %d channels", i, p.Rows, len(p.Tracks))
		}
	}
	if got := *s.Patterns[11].Event(3, 0); got != (song.Event{Note: 61, HasNote: true}) {
		t.Errorf("pattern 11 channel 3 row 0 = %s", got)
	}
	if !bytes.Equal(s.Orders, []byte{0, 11}) {
		t.Errorf("orders = %v", s.Orders)
	}
}

func TestParseWithoutOptionalChunks(t *testing.T) {
	res, err := parse(form(ptdt))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Song.Format != "Protracker 3" || res.Song.Title != "classic" {
		t.Errorf("format %q, title %q", res.Song.Format, res.Song.Title)
	}
	if !res.Song.Created.IsZero() {
		t.Errorf("created = %v without an INFO chunk", res.Song.Created)
	}
}

func TestInfoWarnings(t *testing.T) {
	tests := []struct {
		name   string
		fields infoFields
	}{
		{"order count mismatch", infoFields{length: 3, globalVolume: 64}},
		{"global volume", infoFields{length: 2, globalVolume: 65}},
		{"unsupported flags", infoFields{length: 2, globalVolume: 64, flags: Flag8Voice}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(form(chunk("INFO", info(tt.fields)), ptdt))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(res.Warnings) != 1 {
				t.Errorf("warnings = %s", spew.Sdump(res.Warnings))
			}
		})
	}
}

func TestCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no pattern data", form(version, chunk("INFO", info(infoFields{length: 2}))), parser.ErrCorruptStructure},
		{"two pattern data chunks", form(ptdt, ptdt), parser.ErrCorruptStructure},
		{"short INFO", form(chunk("INFO", make([]byte, 10)), ptdt), parser.ErrCorruptStructure},
		{"truncated pattern data", form(chunk("PTDT", classic([]byte{0, 11})[:protracker.HeaderSize+10])), parser.ErrTruncatedInput},
		{"not a FORM", []byte("RIFF\x00\x00\x00\x04WAVE"), parser.ErrFormatMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreatedTime(t *testing.T) {
	tests := []struct {
		created [6]uint16
		want    time.Time
	}{
		{[6]uint16{1, 1, 99, 0, 0, 0}, time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{[6]uint16{31, 12, 2005, 23, 59, 59}, time.Date(2005, time.December, 31, 23, 59, 59, 0, time.UTC)},
		{[6]uint16{0, 0, 0, 0, 0, 0}, time.Time{}},
		{[6]uint16{1, 13, 90, 0, 0, 0}, time.Time{}},
	}
	for _, tt := range tests {
		info := Info{Created: tt.created}
		if got := info.CreatedTime(); !got.Equal(tt.want) {
			t.Errorf("CreatedTime(%v) = %v, want %v", tt.created, got, tt.want)
		}
	}
}
