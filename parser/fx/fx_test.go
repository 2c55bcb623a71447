package fx

import (
	"errors"
	"testing"

	"github.com/QEStudios/ModLoader/parser"
	"github.com/QEStudios/ModLoader/song"
)

const liquidM = 'M' - 'A' // Liquid's extended effect letter.

func TestLiquidExtended(t *testing.T) {
	tests := []struct {
		name      string
		param     uint8
		wantFx    song.Effect
		wantParam uint8
		wantOK    bool
	}{
		{"glissando", 0x31, song.EffectExtended, song.ExtendedParam(song.ExtGlissando, 1), true},
		{"vibrato waveform", 0x42, song.EffectExtended, song.ExtendedParam(song.ExtVibratoWaveform, 2), true},
		{"finetune", 0x5f, song.EffectExtended, song.ExtendedParam(song.ExtFinetune, 0xf), true},
		{"pattern loop", 0x63, song.EffectExtended, song.ExtendedParam(song.ExtPatternLoop, 3), true},
		{"tremolo waveform", 0x70, song.EffectExtended, song.ExtendedParam(song.ExtTremoloWaveform, 0), true},
		{"note cut", 0xc4, song.EffectExtended, song.ExtendedParam(song.ExtNoteCut, 4), true},
		{"note delay", 0xd5, song.EffectExtended, song.ExtendedParam(song.ExtNoteDelay, 5), true},
		{"pattern delay", 0xe6, song.EffectExtended, song.ExtendedParam(song.ExtPatternDelay, 6), true},
		{"unmapped nibble clears", 0xf7, song.EffectNone, 0, false},
		{"filter isn't mapped", 0x01, song.EffectNone, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := song.Event{Effect: song.EffectVibrato, Param: 0x99}
			ok, err := Liquid.Apply(&e, liquidM, tt.param)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if ok != tt.wantOK || e.Effect != tt.wantFx || e.Param != tt.wantParam {
				t.Errorf("got (%v, %v, 0x%02x), want (%v, %v, 0x%02x)", ok, e.Effect, e.Param, tt.wantOK, tt.wantFx, tt.wantParam)
			}
		})
	}
}

func TestGlissandoDecodesBack(t *testing.T) {
	var e song.Event
	if _, err := Liquid.Apply(&e, liquidM, 0x3a); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	sub, value, ok := e.Extended()
	if !ok || sub != song.ExtGlissando || value != 0xa {
		t.Errorf("Extended() = (%v, 0x%x, %v), want (glissando, 0xa, true)", sub, value, ok)
	}
}

func TestLiquidCodes(t *testing.T) {
	tests := []struct {
		letter byte
		want   song.Effect
	}{
		{'A', song.EffectArpeggio},
		{'B', song.EffectBPM},
		{'C', song.EffectBreak},
		{'D', song.EffectPortaDown},
		{'J', song.EffectJump},
		{'L', song.EffectVolSlide},
		{'N', song.EffectTonePorta},
		{'O', song.EffectOffset},
		{'S', song.EffectTicksPerRow},
		{'T', song.EffectTremolo},
		{'U', song.EffectPortaUp},
		{'V', song.EffectVibrato},
		{'X', song.EffectTonePortaVolSlide},
		{'Y', song.EffectVibratoVolSlide},
		{'P', song.EffectNone},
	}
	for _, tt := range tests {
		fx, p, _, err := Liquid.Translate(tt.letter-'A', 0x12)
		if err != nil {
			t.Fatalf("%c: %v", tt.letter, err)
		}
		if fx != tt.want {
			t.Errorf("%c = %v, want %v", tt.letter, fx, tt.want)
		}
		if fx == song.EffectNone && p != 0 {
			t.Errorf("%c: dropped effect kept parameter 0x%02x", tt.letter, p)
		}
	}
}

func TestOutOfRangeCode(t *testing.T) {
	for _, code := range []uint8{25, 26, 0xff} {
		_, _, _, err := Liquid.Translate(code, 0)
		if !errors.Is(err, parser.ErrCorruptStructure) {
			t.Errorf("code %d: got %v, want ErrCorruptStructure", code, err)
		}
	}
	if _, _, _, err := Protracker.Translate(16, 0); !errors.Is(err, parser.ErrCorruptStructure) {
		t.Errorf("protracker code 16: got %v, want ErrCorruptStructure", err)
	}
}

func TestProtrackerExtendedKeepsEveryNibble(t *testing.T) {
	for nibble := range uint8(16) {
		fx, p, ok, err := Protracker.Translate(0xe, nibble<<4|0x3)
		if err != nil || !ok || fx != song.EffectExtended {
			t.Fatalf("E%X3: (%v, %v, %v)", nibble, fx, ok, err)
		}
		if p != nibble<<4|0x3 {
			t.Errorf("E%X3: parameter 0x%02x", nibble, p)
		}
	}
}
