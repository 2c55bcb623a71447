// Package parser holds what every module format decoder shares: the binary cursor,
// the error taxonomy, configuration, warnings and the Format interface the dispatcher probes.
package parser

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"

	"github.com/QEStudios/ModLoader/parser/sample"
	"github.com/QEStudios/ModLoader/song"
)

// Config is shared by every decoder.
type Config struct {
	Logger *log.Logger

	// Samples materializes sample payloads. Defaults to sample.PCM{}.
	Samples sample.Loader

	// Where the module lives. Formats that keep data in companion files use these to find them.
	FS   fs.FS
	Name string
}

// A non-fatal problem found while decoding.
type Warning struct {
	Offset  int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("offset 0x%x: %s", w.Offset, w.Message)
}

type Result struct {
	Song     *song.Song
	Warnings []Warning
}

// Format is one module format the dispatcher can try.
type Format interface {
	// Name is a short identifier, e.g. "liq".
	Name() string

	// Test sniffs r and returns nil if it looks like this format, or an error wrapping ErrFormatMismatch.
	// It restores r's position before returning.
	Test(r io.ReadSeeker) error

	// Parse decodes the whole module.
	Parse(r io.ReadSeeker, cfg Config) (*Result, error)
}

// Base carries the state every format parser needs. Format parsers embed it.
type Base struct {
	Cursor  *Cursor
	Logger  *log.Logger
	Samples sample.Loader
	Config  Config

	r        io.ReadSeeker
	warnings []Warning

	// Parsing can only be done once per parser.
	used bool
}

// Init prepares the base for decoding r.
func (b *Base) Init(r io.ReadSeeker, cfg Config) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Samples == nil {
		cfg.Samples = sample.PCM{}
	}
	b.r = r
	b.Config = cfg
	b.Logger = cfg.Logger
	b.Samples = cfg.Samples
}

// Begin marks the parser as used and positions a cursor on the input.
func (b *Base) Begin() error {
	if b.used {
		return fmt.Errorf("parser already used")
	}
	b.used = true
	if b.r == nil {
		return fmt.Errorf("parser has no input")
	}
	c, err := NewCursor(b.r)
	if err != nil {
		return err
	}
	b.Cursor = c
	return nil
}

// Warnf records a non-fatal warning at the current offset and logs it.
func (b *Base) Warnf(format string, args ...any) {
	w := Warning{Offset: b.pos(), Message: fmt.Sprintf(format, args...)}
	b.warnings = append(b.warnings, w)
	b.Logger.Printf("warning: %v", w)
}

// Fatalf returns an ErrCorruptStructure error prefixed with the current offset.
func (b *Base) Fatalf(format string, args ...any) error {
	return fmt.Errorf("offset 0x%x: %w: %s", b.pos(), ErrCorruptStructure, fmt.Sprintf(format, args...))
}

// Check converts a song.Builder range error into a corruption error; other errors pass through unchanged.
func (b *Base) Check(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, song.ErrOutOfRange) {
		return b.Fatalf("%v", err)
	}
	return err
}

// LoadSample hands the payload for slot to the configured sample loader and stores the result.
func (b *Base) LoadSample(r io.Reader, sb *song.Builder, slot int, baseRate int) error {
	_, info, err := sb.Instrument(slot)
	if err != nil {
		return b.Check(err)
	}
	data, err := b.Samples.Load(r, slot, baseRate, info)
	if err != nil {
		if errors.Is(err, sample.ErrShortSample) {
			return fmt.Errorf("%w: %w", ErrTruncatedInput, err)
		}
		return err
	}
	return sb.SetSampleData(slot, data)
}

// Result finishes the song and bundles it with the collected warnings.
func (b *Base) Result(sb *song.Builder) (*Result, error) {
	s, err := sb.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStructure, err)
	}
	if len(b.warnings) > 0 {
		b.Logger.Printf("%d warnings produced while parsing %s", len(b.warnings), s.Format)
	}
	return &Result{Song: s, Warnings: b.warnings}, nil
}

// Warnings returns the warnings collected so far.
func (b *Base) Warnings() []Warning {
	return b.warnings
}

func (b *Base) pos() int64 {
	if b.Cursor == nil {
		return 0
	}
	return b.Cursor.Pos()
}

// Sniff runs test with r positioned at start and restores r's position afterwards.
// A failed restore is reported when test itself succeeded.
func Sniff(r io.ReadSeeker, test func(c *Cursor) error) (err error) {
	saved, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	defer func() {
		if _, serr := r.Seek(saved, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("cannot restore stream position: %w", serr)
		}
	}()

	c, err := NewCursor(r)
	if err != nil {
		return err
	}
	if err := test(c); err != nil {
		if errors.Is(err, ErrTruncatedInput) {
			return fmt.Errorf("%w: %w", ErrFormatMismatch, err)
		}
		return err
	}
	return nil
}
