package song

// Effect is the canonical effect vocabulary every format's effect codes are translated into.
type Effect uint8

const (
	EffectNone              Effect = iota
	EffectArpeggio                 // xy: first and second halfnote offsets.
	EffectPortaUp                  // xx: slide speed.
	EffectPortaDown                // xx: slide speed.
	EffectTonePorta                // xx: slide speed towards the note.
	EffectVibrato                  // xy: speed, depth.
	EffectTonePortaVolSlide        // xy: volume up, volume down.
	EffectVibratoVolSlide          // xy: volume up, volume down.
	EffectTremolo                  // xy: speed, depth.
	EffectSetPan                   // xx: pan position.
	EffectOffset                   // xx: sample offset in 256 frame units.
	EffectVolSlide                 // xy: volume up, volume down.
	EffectJump                     // xx: order list position.
	EffectVolume                   // xx: volume 0..64.
	EffectBreak                    // xx: row in next pattern.
	EffectExtended                 // xy: x selects an ExtendedEffect, y is its parameter.
	EffectSpeed                    // xx: ticks per row below 0x20, BPM otherwise.
	EffectTicksPerRow              // xx: ticks per row.
	EffectBPM                      // xx: tempo in BPM.
)

var effectNames = [...]string{
	EffectNone:              "none",
	EffectArpeggio:          "arpeggio",
	EffectPortaUp:           "porta up",
	EffectPortaDown:         "porta down",
	EffectTonePorta:         "tone porta",
	EffectVibrato:           "vibrato",
	EffectTonePortaVolSlide: "tone porta + vol slide",
	EffectVibratoVolSlide:   "vibrato + vol slide",
	EffectTremolo:           "tremolo",
	EffectSetPan:            "set pan",
	EffectOffset:            "sample offset",
	EffectVolSlide:          "vol slide",
	EffectJump:              "position jump",
	EffectVolume:            "set volume",
	EffectBreak:             "pattern break",
	EffectExtended:          "extended",
	EffectSpeed:             "set speed",
	EffectTicksPerRow:       "ticks per row",
	EffectBPM:               "set bpm",
}

func (e Effect) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return "invalid"
}

// ExtendedEffect selects the behaviour of an EffectExtended event (the high nibble of its parameter).
type ExtendedEffect uint8

const (
	ExtFilter ExtendedEffect = iota
	ExtFinePortaUp
	ExtFinePortaDown
	ExtGlissando
	ExtVibratoWaveform
	ExtFinetune
	ExtPatternLoop
	ExtTremoloWaveform
	ExtSetPan
	ExtRetrig
	ExtFineVolSlideUp
	ExtFineVolSlideDown
	ExtNoteCut
	ExtNoteDelay
	ExtPatternDelay
	ExtInvertLoop
)

// ExtendedParam packs a sub-effect and its 4-bit parameter into an EffectExtended parameter byte.
func ExtendedParam(sub ExtendedEffect, value uint8) uint8 {
	return uint8(sub)<<4 | value&0x0f
}

// Extended splits an EffectExtended parameter into the sub-effect and its value.
// ok is false for any other effect.
func (e *Event) Extended() (sub ExtendedEffect, value uint8, ok bool) {
	if e.Effect != EffectExtended {
		return 0, 0, false
	}
	return ExtendedEffect(e.Param >> 4), e.Param & 0x0f, true
}
