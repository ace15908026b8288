// Package captions groups word-level transcript timing into readable caption
// lines and renders them as ASS subtitles with per-word highlight.
package captions

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// WordSpan is one transcribed word with narration-relative timing in seconds.
type WordSpan struct {
	Word  string
	Start float64
	End   float64
}

// CaptionUnit is an ordered group of words rendered as one caption line.
// Units partition the originating word sequence without gaps or overlaps.
type CaptionUnit struct {
	Words []WordSpan
}

// Start returns the unit's display start (first word's start).
func (u CaptionUnit) Start() float64 {
	if len(u.Words) == 0 {
		return 0
	}
	return u.Words[0].Start
}

// End returns the unit's display end (last word's end).
func (u CaptionUnit) End() float64 {
	if len(u.Words) == 0 {
		return 0
	}
	return u.Words[len(u.Words)-1].End
}

// Text returns the unit's full line text.
func (u CaptionUnit) Text() string {
	parts := make([]string, 0, len(u.Words))
	for _, w := range u.Words {
		parts = append(parts, w.Word)
	}
	return strings.Join(parts, " ")
}

// NormalizeWord trims surrounding whitespace and applies NFC so transcriber
// output with decomposed diacritics renders consistently.
func NormalizeWord(word string) string {
	return norm.NFC.String(strings.TrimSpace(word))
}
