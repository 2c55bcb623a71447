// Package modloader loads tracker modules in any of the supported formats into a song.Song.
//
// Load opens a module from a file system, undoes zstd packing if present, probes each
// known format in turn and runs the decoder of the first one that matches.
package modloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"strings"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/parser/liquid"
	"github.com/QEStudios/ModLoader/parser/mfp"
	"github.com/QEStudios/ModLoader/parser/pt3"
	"github.com/QEStudios/ModLoader/parser/sample"
)

// Formats lists every supported format in probing order.
// Formats with a signature come first; the structural sniff of the packer goes last.
var Formats = []parser.Format{
	liquid.Format{},
	pt3.Format{},
	mfp.Format{},
}

// Options controls a Load call.
type Options struct {
	Logger  *log.Logger
	Samples sample.Loader // Defaults to sample.PCM{}.

	// Format forces a decoder by name ("liq", "mfp", "pt3") instead of probing.
	Format string
}

// FormatByName returns the format with the given name.
func FormatByName(name string) (parser.Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(f.Name(), name) {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = f.Name()
	}
	return nil, fmt.Errorf("unknown format %q (known: %s)", name, strings.Join(names, ", "))
}

// Load decodes the module called name in fsys. Companion files are looked up in fsys too.
func Load(fsys fs.FS, name string, opts Options) (*parser.Result, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w: %w", name, parser.ErrResourceUnavailable, err)
	}
	defer f.Close()

	r, err := readSeeker(f)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", name, err)
	}
	r, err = unpack(r, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	cfg := parser.Config{
		Logger:  opts.Logger,
		Samples: opts.Samples,
		FS:      fsys,
		Name:    name,
	}
	return Decode(r, cfg, opts.Format)
}

// Decode decodes a module from r. An empty format means probe every known format.
func Decode(r io.ReadSeeker, cfg parser.Config, format string) (*parser.Result, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	var f parser.Format
	var err error
	if format != "" {
		f, err = FormatByName(format)
	} else {
		f, err = Probe(r)
	}
	if err != nil {
		return nil, err
	}
	cfg.Logger.Printf("Format: %s", f.Name())

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f.Parse(r, cfg)
}

// Probe returns the first format whose test accepts r. Every test starts at offset 0.
func Probe(r io.ReadSeeker) (parser.Format, error) {
	for _, f := range Formats {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		err := f.Test(r)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, parser.ErrFormatMismatch) {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
	}
	return nil, fmt.Errorf("%w: not a supported module", parser.ErrFormatMismatch)
}

// readSeeker returns f itself if it can seek, or an in-memory copy of its contents.
func readSeeker(f fs.File) (io.ReadSeeker, error) {
	if rs, ok := f.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// unpack replaces r with its depacked contents if it starts with a known compression signature.
func unpack(r io.ReadSeeker, logger *log.Logger) (io.ReadSeeker, error) {
	head := make([]byte, len(zstdMagic))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if !isPacked(head[:n]) {
		return r, nil
	}

	packed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err := depack(packed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parser.ErrCorruptStructure, err)
	}
	logger.Printf("Depacked %d bytes to %d", len(packed), len(data))
	return bytes.NewReader(data), nil
}
