package song

import (
	"fmt"
	"io"
	"strings"
)

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// Three letter mnemonics used when rendering effects in a pattern cell.
var effectMnemonics = [...]string{
	EffectNone:              "...",
	EffectArpeggio:          "ARP",
	EffectPortaUp:           "PUP",
	EffectPortaDown:         "PDN",
	EffectTonePorta:         "TPO",
	EffectVibrato:           "VIB",
	EffectTonePortaVolSlide: "TVS",
	EffectVibratoVolSlide:   "VVS",
	EffectTremolo:           "TRM",
	EffectSetPan:            "PAN",
	EffectOffset:            "OFS",
	EffectVolSlide:          "VSL",
	EffectJump:              "JMP",
	EffectVolume:            "VOL",
	EffectBreak:             "BRK",
	EffectExtended:          "EXT",
	EffectSpeed:             "SPD",
	EffectTicksPerRow:       "TPR",
	EffectBPM:               "BPM",
}

func (n Note) String() string {
	switch {
	case n == NoteKeyOff:
		return "==="
	case n.isValid():
		return fmt.Sprintf("%s%d", noteNames[(n-1)%12], (n-1)/12)
	default:
		return "???"
	}
}

// String renders the event as a tracker cell, e.g. "C-5 01 40 ARP10".
func (e Event) String() string {
	var b strings.Builder
	if e.HasNote {
		b.WriteString(e.Note.String())
	} else {
		b.WriteString("...")
	}
	if e.HasInstrument {
		fmt.Fprintf(&b, " %02X", e.Instrument)
	} else {
		b.WriteString(" ..")
	}
	if e.HasVolume {
		fmt.Fprintf(&b, " %02d", e.Volume)
	} else {
		b.WriteString(" ..")
	}
	if e.Effect == EffectNone {
		b.WriteString(" .....")
	} else if int(e.Effect) < len(effectMnemonics) {
		fmt.Fprintf(&b, " %s%02X", effectMnemonics[e.Effect], e.Param)
	} else {
		fmt.Fprintf(&b, " ???%02X", e.Param)
	}
	return b.String()
}

// WritePattern renders a pattern as a table with one column per channel.
// indent is the number of spaces to put before every line.
func WritePattern(w io.Writer, p *Pattern, indent int) error {
	if p.Empty() {
		_, err := fmt.Fprintf(w, "%s(empty)\n", strings.Repeat(" ", indent))
		return err
	}

	numChannels := len(p.Tracks)
	width := len(Event{}.String())

	padRight := func(s string, w int) string {
		if len(s) >= w {
			return s
		}
		return s + strings.Repeat(" ", w-len(s))
	}
	separator := func(b *strings.Builder) {
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString("+-----")
		for range numChannels {
			b.WriteString("+")
			b.WriteString(strings.Repeat("-", width+2))
		}
		b.WriteString("+\n")
	}

	var b strings.Builder
	separator(&b)

	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString("| Row ")
	for ch := range numChannels {
		b.WriteString("| ")
		b.WriteString(padRight(fmt.Sprintf("Channel %d", ch), width))
		b.WriteString(" ")
	}
	b.WriteString("|\n")
	separator(&b)

	for row := range p.Rows {
		b.WriteString(strings.Repeat(" ", indent))
		fmt.Fprintf(&b, "| %3d ", row)
		for ch := range numChannels {
			b.WriteString("| ")
			b.WriteString(p.Tracks[ch].Events[row].String())
			b.WriteString(" ")
		}
		b.WriteString("|\n")
	}
	separator(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// Pretty-print
func (s *Song) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", s.Format)
	fmt.Fprintf(&b, "- Title: %s\n", s.Title)
	if s.Author != "" {
		fmt.Fprintf(&b, "- Author: %s\n", s.Author)
	}
	if s.Tracker != "" {
		fmt.Fprintf(&b, "- Tracker: %s\n", s.Tracker)
	}
	if !s.Created.IsZero() {
		fmt.Fprintf(&b, "- Created: %s\n", s.Created.Format("2006-01-02 15:04:05"))
	}
	if s.PlayTime > 0 {
		fmt.Fprintf(&b, "- Play time: %s\n", s.PlayTime)
	}
	fmt.Fprintf(&b, "- Channels: %d\n", s.Channels)
	fmt.Fprintf(&b, "- Speed/BPM: %d/%d\n", s.Speed, s.BPM)
	fmt.Fprintf(&b, "- Global volume: %d\n", s.GlobalVolume)
	fmt.Fprintf(&b, "- Orders: %d (restart at %d)\n", len(s.Orders), s.Restart)
	fmt.Fprintf(&b, "- Patterns: %d\n", len(s.Patterns))
	fmt.Fprintf(&b, "- Instruments: %d\n", len(s.Instruments))

	for i, ins := range s.Instruments {
		smp := s.Samples[i]
		if ins.Name == "" && smp.Length == 0 {
			continue
		}
		loop := ' '
		if smp.Looping() {
			loop = 'L'
		}
		bits := ' '
		if smp.Is16Bit() {
			bits = '+'
		}
		fmt.Fprintf(&b, "  [%02X] %-30.30s %06x%c %06x %06x %c", i, ins.Name, smp.Length, bits, smp.LoopStart, smp.LoopEnd, loop)
		if len(ins.Subs) > 0 {
			sub := ins.Subs[0]
			fmt.Fprintf(&b, " V%02x P%02x %+d/%+d", sub.Volume, sub.Pan, sub.Transpose, sub.Finetune)
		}
		b.WriteString("\n")
	}

	return b.String()
}
