package captions

import "strings"

// Punctuation pauses folded into estimated word durations before the final
// scale to the narration length.
const (
	sentencePause = 0.3
	clausePause   = 0.15
)

// EstimateTiming distributes the narration duration across the script's words
// using syllable weights, used when no transcriber is available. Words keep
// their original text, including punctuation, so grouping still breaks on
// clause boundaries. Returns nil when the script has no words or the duration
// is non-positive.
func EstimateTiming(script string, duration float64) []WordSpan {
	if duration <= 0 {
		return nil
	}
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return nil
	}

	totalSyllables := 0
	for _, word := range fields {
		totalSyllables += countSyllables(word)
	}

	spans := make([]WordSpan, 0, len(fields))
	current := 0.0
	for _, word := range fields {
		wordDuration := float64(countSyllables(word)) / float64(totalSyllables) * duration
		switch {
		case strings.HasSuffix(word, "."), strings.HasSuffix(word, "!"), strings.HasSuffix(word, "?"):
			wordDuration += sentencePause
		case strings.HasSuffix(word, ","), strings.HasSuffix(word, ";"), strings.HasSuffix(word, ":"):
			wordDuration += clausePause
		}
		spans = append(spans, WordSpan{
			Word:  NormalizeWord(word),
			Start: current,
			End:   current + wordDuration,
		})
		current += wordDuration
	}

	// Pauses push the total past the narration length; rescale so the last
	// word ends exactly at the target.
	scale := duration / current
	for i := range spans {
		spans[i].Start *= scale
		spans[i].End *= scale
	}
	return spans
}

func countSyllables(word string) int {
	word = strings.ToLower(strings.Trim(word, `.,!?;:"'()`))
	const vowels = "aeiouy"
	count := 0
	previousWasVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !previousWasVowel {
			count++
		}
		previousWasVowel = isVowel
	}
	if count < 1 {
		return 1
	}
	return count
}
