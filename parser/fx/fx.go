// Package fx translates format-specific effect codes into the canonical song.Effect vocabulary.
package fx

import (
	"fmt"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
)

// Unsupported marks a raw code the format defines but the canonical vocabulary has no equivalent for.
const Unsupported = song.EffectNone

// Table maps raw effect codes 0..len(Codes)-1 to canonical effects.
type Table struct {
	Name  string
	Codes []song.Effect

	// Extended maps the high nibble of an EffectExtended parameter to a canonical sub-effect.
	// A nibble missing from the map clears the effect entirely.
	Extended map[uint8]song.ExtendedEffect
}

// Translate converts a raw effect code and parameter.
// ok is false if the effect was dropped (unsupported code or unknown extended nibble);
// code beyond the table is corruption.
func (t *Table) Translate(code, param uint8) (fx song.Effect, p uint8, ok bool, err error) {
	if int(code) >= len(t.Codes) {
		return song.EffectNone, 0, false, fmt.Errorf("%s effect code %d out of range 0..%d: %w", t.Name, code, len(t.Codes)-1, parser.ErrCorruptStructure)
	}
	fx = t.Codes[code]
	switch fx {
	case Unsupported:
		return song.EffectNone, 0, false, nil
	case song.EffectExtended:
		sub, known := t.Extended[param>>4]
		if !known {
			return song.EffectNone, 0, false, nil
		}
		return fx, song.ExtendedParam(sub, param&0x0f), true, nil
	}
	return fx, param, true, nil
}

// Apply translates code/param and stores the result in e.
func (t *Table) Apply(e *song.Event, code, param uint8) (ok bool, err error) {
	fx, p, ok, err := t.Translate(code, param)
	if err != nil {
		return false, err
	}
	e.SetEffect(fx, p)
	return ok, nil
}
