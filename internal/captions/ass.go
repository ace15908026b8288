package captions

import (
	"fmt"
	"os"
	"strings"
)

// RenderOptions controls ASS output geometry and styling.
type RenderOptions struct {
	PlayResX int
	PlayResY int
	FontSize int
	// HighlightColour is the ASS colour (&HAABBGGRR) of the active word.
	HighlightColour string
}

const (
	baseColour    = "&H00FFFFFF" // white fill shared by inactive words
	outlineColour = "&H00000000" // black outline for legibility
)

func (o RenderOptions) withDefaults() RenderOptions {
	if o.PlayResX <= 0 {
		o.PlayResX = 720
	}
	if o.PlayResY <= 0 {
		o.PlayResY = 1280
	}
	if o.FontSize <= 0 {
		o.FontSize = 24
	}
	if strings.TrimSpace(o.HighlightColour) == "" {
		o.HighlightColour = "&H0000D7FF"
	}
	return o
}

// RenderASS produces a karaoke-style subtitle script: one dialogue event per
// word, each spanning exactly that word's interval and rendering the full
// unit text with the active word in the highlight colour. All words share the
// outline treatment from the style.
func RenderASS(units []CaptionUnit, opts RenderOptions) string {
	opts = opts.withDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 2\n\n", opts.PlayResX, opts.PlayResY)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Caption,Arial,%d,%s,%s,%s,&H00000000,0,0,0,0,100,100,0,0,1,2,0,2,10,10,30,1\n\n",
		opts.FontSize, baseColour, opts.HighlightColour, outlineColour)
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, unit := range units {
		for i, word := range unit.Words {
			if word.End <= word.Start {
				continue
			}
			fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n",
				assTimestamp(word.Start), assTimestamp(word.End), unitText(unit, i, opts.HighlightColour))
		}
	}
	return b.String()
}

// WriteASS renders the units and writes the script to path.
func WriteASS(path string, units []CaptionUnit, opts RenderOptions) error {
	if err := os.WriteFile(path, []byte(RenderASS(units, opts)), 0o644); err != nil {
		return fmt.Errorf("write ass script: %w", err)
	}
	return nil
}

func unitText(unit CaptionUnit, active int, highlight string) string {
	parts := make([]string, 0, len(unit.Words))
	for i, word := range unit.Words {
		text := escapeASS(NormalizeWord(word.Word))
		if i == active {
			text = fmt.Sprintf("{\\1c%s&}%s{\\1c%s&}", highlight, text, baseColour)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func escapeASS(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "{", "\\{")
	text = strings.ReplaceAll(text, "}", "\\}")
	return text
}

// assTimestamp formats seconds as H:MM:SS.CC (centisecond precision).
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	hours := centis / 360000
	centis -= hours * 360000
	minutes := centis / 6000
	centis -= minutes * 6000
	secs := centis / 100
	centis -= secs * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}
