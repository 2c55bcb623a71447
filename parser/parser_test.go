package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/QEStudios/ModLoader/parser/sample"
	"github.com/QEStudios/ModLoader/song"
)

func newBase(t *testing.T, data []byte, logs io.Writer) *Base {
	t.Helper()
	var b Base
	b.Init(bytes.NewReader(data), Config{Logger: log.New(logs, "", 0)})
	if err := b.Begin(); err != nil {
		t.Fatal(err)
	}
	return &b
}

func TestBaseIsSingleUse(t *testing.T) {
	b := newBase(t, []byte{1, 2, 3}, io.Discard)
	if err := b.Begin(); err == nil {
		t.Errorf("second Begin succeeded")
	}

	var empty Base
	empty.Init(nil, Config{})
	if err := empty.Begin(); err == nil {
		t.Errorf("Begin without input succeeded")
	}
	if empty.Logger == nil {
		t.Errorf("Init left the logger unset")
	}
	if _, ok := empty.Samples.(sample.PCM); !ok {
		t.Errorf("default sample loader = %T, want sample.PCM", empty.Samples)
	}
}

func TestWarnings(t *testing.T) {
	var logs bytes.Buffer
	b := newBase(t, make([]byte, 16), &logs)
	b.Cursor.Skip(5)
	b.Warnf("channel %d clamped", 3)

	want := []Warning{{Offset: 5, Message: "channel 3 clamped"}}
	if got := b.Warnings(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("warnings = %v, want %v", got, want)
	}
	if !strings.Contains(logs.String(), "offset 0x5: channel 3 clamped") {
		t.Errorf("warning not logged: %q", logs.String())
	}
}

func TestFatalfAndCheck(t *testing.T) {
	b := newBase(t, make([]byte, 32), io.Discard)
	b.Cursor.Skip(0x10)

	err := b.Fatalf("bad tag %q", "LQ")
	if !errors.Is(err, ErrCorruptStructure) || !IsCorrupt(err) {
		t.Errorf("Fatalf = %v, want ErrCorruptStructure", err)
	}
	if !strings.HasPrefix(err.Error(), "offset 0x10: ") {
		t.Errorf("Fatalf = %q, want an offset prefix", err)
	}

	if err := b.Check(fmt.Errorf("pattern 9: %w", song.ErrOutOfRange)); !errors.Is(err, ErrCorruptStructure) {
		t.Errorf("Check(out of range) = %v, want ErrCorruptStructure", err)
	}
	other := errors.New("disk on fire")
	if err := b.Check(other); err != other {
		t.Errorf("Check(other) = %v, want it unchanged", err)
	}
	if err := b.Check(nil); err != nil {
		t.Errorf("Check(nil) = %v", err)
	}
}

func TestLoadSample(t *testing.T) {
	b := newBase(t, nil, io.Discard)
	sb := song.NewBuilder()
	sb.SetInstrumentCount(1)
	_, smp, _ := sb.Instrument(0)
	smp.Length = 3

	if err := b.LoadSample(bytes.NewReader([]byte{1, 2}), sb, 0, 0); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("short payload: got %v, want ErrTruncatedInput", err)
	}
	if err := b.LoadSample(bytes.NewReader([]byte{1, 2, 3}), sb, 0, 0); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if got := sb.Song().SampleData[0]; len(got) != 3 || got[2] != 3<<8 {
		t.Errorf("sample data = %v", got)
	}
	if err := b.LoadSample(bytes.NewReader(nil), sb, 1, 0); !errors.Is(err, ErrCorruptStructure) {
		t.Errorf("slot 1: got %v, want ErrCorruptStructure", err)
	}
}

// brokenSeeker fails every absolute seek once broken is set.
type brokenSeeker struct {
	*bytes.Reader
	broken bool
}

func (s *brokenSeeker) Seek(offset int64, whence int) (int64, error) {
	if s.broken && whence == io.SeekStart {
		return 0, errors.New("seek failed")
	}
	return s.Reader.Seek(offset, whence)
}

func TestSniff(t *testing.T) {
	r := bytes.NewReader([]byte("ABCDEFGH"))
	r.Seek(2, io.SeekStart)
	err := Sniff(r, func(c *Cursor) error {
		_, err := c.Block(16)
		return err
	})
	if !errors.Is(err, ErrFormatMismatch) || !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("short read: got %v, want ErrFormatMismatch", err)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 2 {
		t.Errorf("Sniff left the reader at %d, want 2", pos)
	}

	bs := &brokenSeeker{Reader: bytes.NewReader([]byte("ABCD"))}
	err = Sniff(bs, func(c *Cursor) error {
		bs.broken = true
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "cannot restore stream position") {
		t.Errorf("failed restore: got %v", err)
	}

	bs.broken = false
	mismatch := errors.New("wrong magic")
	err = Sniff(bs, func(c *Cursor) error {
		bs.broken = true
		return mismatch
	})
	if err != mismatch {
		t.Errorf("failed test and restore: got %v, want the test error", err)
	}
}
