package captions

import "strings"

// DefaultMaxWordsPerLine bounds caption line length for readability.
const DefaultMaxWordsPerLine = 3

// breakRunes are the sentence- and clause-terminating marks that close a
// caption group early.
const breakRunes = ".!?,;:"

// Group scans words left to right and partitions them into caption units. A
// unit closes when its last word ends with terminating punctuation or when it
// reaches maxWords, whichever comes first; a non-empty trailing group is
// flushed. maxWords values below one fall back to DefaultMaxWordsPerLine.
func Group(words []WordSpan, maxWords int) []CaptionUnit {
	if maxWords < 1 {
		maxWords = DefaultMaxWordsPerLine
	}

	var units []CaptionUnit
	var current []WordSpan
	for _, word := range words {
		current = append(current, word)
		if endsWithBreak(word.Word) || len(current) >= maxWords {
			units = append(units, CaptionUnit{Words: current})
			current = nil
		}
	}
	if len(current) > 0 {
		units = append(units, CaptionUnit{Words: current})
	}
	return units
}

func endsWithBreak(word string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(word), `"')`)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return strings.IndexByte(breakRunes, last) >= 0
}
