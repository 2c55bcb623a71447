package fx

import "github.com/QEStudios/ModLoader/song"

// Liquid is the Liquid Tracker effect table. Raw codes are the effect letter minus 'A'.
var Liquid = &Table{
	Name: "liquid",
	Codes: []song.Effect{
		song.EffectArpeggio,          // A
		song.EffectBPM,               // B
		song.EffectBreak,             // C
		song.EffectPortaDown,         // D
		Unsupported,                  // E
		Unsupported,                  // F: fine vibrato
		Unsupported,                  // G
		Unsupported,                  // H
		Unsupported,                  // I
		song.EffectJump,              // J
		Unsupported,                  // K
		song.EffectVolSlide,          // L
		song.EffectExtended,          // M
		song.EffectTonePorta,         // N
		song.EffectOffset,            // O
		Unsupported,                  // P: pan
		Unsupported,                  // Q
		Unsupported,                  // R: multi retrig
		song.EffectTicksPerRow,       // S
		song.EffectTremolo,           // T
		song.EffectPortaUp,           // U
		song.EffectVibrato,           // V
		Unsupported,                  // W
		song.EffectTonePortaVolSlide, // X
		song.EffectVibratoVolSlide,   // Y
	},
	Extended: map[uint8]song.ExtendedEffect{
		0x3: song.ExtGlissando,
		0x4: song.ExtVibratoWaveform,
		0x5: song.ExtFinetune,
		0x6: song.ExtPatternLoop,
		0x7: song.ExtTremoloWaveform,
		0xc: song.ExtNoteCut,
		0xd: song.ExtNoteDelay,
		0xe: song.ExtPatternDelay,
	},
}

// Protracker is the classic 4-channel tracker effect table, codes 0x0..0xF.
var Protracker = &Table{
	Name: "protracker",
	Codes: []song.Effect{
		song.EffectArpeggio,          // 0
		song.EffectPortaUp,           // 1
		song.EffectPortaDown,         // 2
		song.EffectTonePorta,         // 3
		song.EffectVibrato,           // 4
		song.EffectTonePortaVolSlide, // 5
		song.EffectVibratoVolSlide,   // 6
		song.EffectTremolo,           // 7
		song.EffectSetPan,            // 8
		song.EffectOffset,            // 9
		song.EffectVolSlide,          // A
		song.EffectJump,              // B
		song.EffectVolume,            // C
		song.EffectBreak,             // D
		song.EffectExtended,          // E
		song.EffectSpeed,             // F
	},
	Extended: allExtended(),
}

// Every E-command nibble means the sub-effect with the same number.
func allExtended() map[uint8]song.ExtendedEffect {
	m := make(map[uint8]song.ExtendedEffect, 16)
	for i := range uint8(16) {
		m[i] = song.ExtendedEffect(i)
	}
	return m
}
