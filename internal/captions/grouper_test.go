package captions

import (
	"strings"
	"testing"
)

func spans(words ...string) []WordSpan {
	out := make([]WordSpan, len(words))
	step := 0.5
	for i, w := range words {
		out[i] = WordSpan{Word: w, Start: float64(i) * step, End: float64(i)*step + step}
	}
	return out
}

func unitWords(u CaptionUnit) []string {
	out := make([]string, len(u.Words))
	for i, w := range u.Words {
		out[i] = w.Word
	}
	return out
}

func TestGroupBreaksOnPunctuation(t *testing.T) {
	units := Group(spans("Hello", "world,", "today", "is", "great"), 3)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if got := strings.Join(unitWords(units[0]), " "); got != "Hello world," {
		t.Errorf("first unit = %q", got)
	}
	if got := strings.Join(unitWords(units[1]), " "); got != "today is great" {
		t.Errorf("second unit = %q", got)
	}
}

func TestGroupRespectsMaxWords(t *testing.T) {
	units := Group(spans("one", "two", "three", "four", "five", "six", "seven"), 3)
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	for i, u := range units[:2] {
		if len(u.Words) != 3 {
			t.Errorf("unit %d has %d words, want 3", i, len(u.Words))
		}
	}
	if len(units[2].Words) != 1 {
		t.Errorf("trailing unit has %d words, want 1", len(units[2].Words))
	}
}

func TestGroupIsPartition(t *testing.T) {
	input := spans("a", "b.", "c", "d", "e", "f!", "g")
	units := Group(input, 3)
	var flat []WordSpan
	for _, u := range units {
		flat = append(flat, u.Words...)
	}
	if len(flat) != len(input) {
		t.Fatalf("partition lost words: %d != %d", len(flat), len(input))
	}
	for i := range flat {
		if flat[i] != input[i] {
			t.Errorf("word %d reordered: got %+v want %+v", i, flat[i], input[i])
		}
	}
}

func TestGroupQuotedPunctuation(t *testing.T) {
	units := Group(spans("he", `said,"`, "go"), 5)
	if len(units) != 2 {
		t.Fatalf("expected break after quoted comma, got %d units", len(units))
	}
}

func TestGroupEmptyInput(t *testing.T) {
	if units := Group(nil, 3); len(units) != 0 {
		t.Errorf("expected no units for empty input, got %d", len(units))
	}
}

func TestGroupDefaultsMaxWords(t *testing.T) {
	units := Group(spans("one", "two", "three", "four"), 0)
	if len(units) != 2 {
		t.Fatalf("expected zero max to fall back to default of %d, got %d units", DefaultMaxWordsPerLine, len(units))
	}
}

func TestUnitBounds(t *testing.T) {
	unit := CaptionUnit{Words: []WordSpan{
		{Word: "first", Start: 1.0, End: 1.4},
		{Word: "second", Start: 1.4, End: 2.1},
	}}
	if unit.Start() != 1.0 {
		t.Errorf("Start() = %v", unit.Start())
	}
	if unit.End() != 2.1 {
		t.Errorf("End() = %v", unit.End())
	}
	if unit.Text() != "first second" {
		t.Errorf("Text() = %q", unit.Text())
	}
}
