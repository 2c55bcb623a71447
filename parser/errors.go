package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatMismatch means the input isn't in the format being tried; the dispatcher moves on to the next one.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrTruncatedInput means the input ended before a field could be read in full.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrSeekOutOfRange means a seek would have moved before the start of the input.
	ErrSeekOutOfRange = errors.New("seek out of range")

	// ErrCorruptStructure means a declared size, offset, opcode or field range doesn't hold.
	ErrCorruptStructure = errors.New("corrupt structure")

	// ErrResourceUnavailable means a file the module depends on couldn't be found or read.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// Corruptf returns an ErrCorruptStructure error with a formatted message.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptStructure, fmt.Sprintf(format, args...))
}

// Mismatchf returns an ErrFormatMismatch error with a formatted message.
func Mismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormatMismatch, fmt.Sprintf(format, args...))
}

// IsCorrupt reports whether err means the input itself is damaged (as opposed to a missing resource or a mismatch).
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptStructure) || errors.Is(err, ErrTruncatedInput) || errors.Is(err, ErrSeekOutOfRange)
}
