// Package clipplan decides how much footage a narration needs and how to
// carve the downloaded clips into a timeline of exactly the right length.
package clipplan

import (
	"fmt"
	"math"
)

// Segment is a slice of one source clip destined for the final timeline.
type Segment struct {
	// ClipIndex identifies the source clip within the downloaded set.
	ClipIndex int
	// Duration is how much of the clip to use, always from its start.
	Duration float64
}

// CountOptions bounds how many clips are fetched for a narration.
type CountOptions struct {
	Min                int
	Max                int
	AverageClipSeconds float64
	Slack              int
}

// Count estimates how many clips to request so the pool comfortably covers
// the narration. The estimate assumes clips average AverageClipSeconds of
// usable footage and adds Slack spares, clamped to [Min, Max].
func Count(duration float64, opts CountOptions) int {
	if opts.AverageClipSeconds <= 0 {
		opts.AverageClipSeconds = 15
	}
	needed := int(math.Ceil(duration/opts.AverageClipSeconds)) + opts.Slack
	if needed < opts.Min {
		needed = opts.Min
	}
	if opts.Max > 0 && needed > opts.Max {
		needed = opts.Max
	}
	if needed < 1 {
		needed = 1
	}
	return needed
}

// Build walks the clip pool cyclically, taking each clip's full length until
// the remaining target fits inside the current clip, which is then trimmed to
// close the timeline at exactly target seconds. Clips with a non-positive
// length are skipped. Returns an error when target is non-positive or no clip
// has usable footage.
func Build(lengths []float64, target float64) ([]Segment, error) {
	if target <= 0 {
		return nil, fmt.Errorf("timeline target must be positive, got %.3f", target)
	}
	usable := false
	for _, l := range lengths {
		if l > 0 {
			usable = true
			break
		}
	}
	if !usable {
		return nil, fmt.Errorf("no clips with usable footage")
	}

	var segments []Segment
	remaining := target
	const epsilon = 1e-9
	for i := 0; remaining > epsilon; i = (i + 1) % len(lengths) {
		length := lengths[i]
		if length <= 0 {
			continue
		}
		take := length
		if take > remaining {
			take = remaining
		}
		segments = append(segments, Segment{ClipIndex: i, Duration: take})
		remaining -= take
	}
	return segments, nil
}

// Total sums the planned segment durations.
func Total(segments []Segment) float64 {
	total := 0.0
	for _, s := range segments {
		total += s.Duration
	}
	return total
}
