// Package timeline derives the playable timeline of a multi-scene video from
// per-scene caption timings.
package timeline

import (
	"math"

	"github.com/MarkSkews1/ai-vid-gen/captions"
)

// FallbackSceneSeconds is used when a scene has no caption timing, and is the
// minimum duration any scene may have.
const FallbackSceneSeconds = 5

// Position locates an elapsed playhead within the scene sequence.
type Position struct {
	Index            int     `json:"index"`
	Offset           float64 `json:"offset"`
	CumulativeBefore float64 `json:"cumulative_before"`
}

// SceneDuration returns a scene's playable duration in seconds: the last
// caption segment's end rounded up, floored at FallbackSceneSeconds. The
// floor prevents captions that end abnormally early from corrupting the
// timeline.
func SceneDuration(segments []captions.Segment) int {
	if len(segments) == 0 {
		return FallbackSceneSeconds
	}
	last := segments[len(segments)-1]
	secs := int(math.Ceil(float64(last.End) / 1000.0))
	if secs < FallbackSceneSeconds {
		return FallbackSceneSeconds
	}
	return secs
}

// Total sums per-scene durations.
func Total(durations []int) int {
	total := 0
	for _, d := range durations {
		total += d
	}
	return total
}

// ActiveSceneAt maps an elapsed time to the scene whose cumulative range
// contains it. An elapsed time past the total clamps to the end of the last
// scene (end-of-playback, not an error). durations must be non-empty; the
// caller guards that at least one scene exists.
func ActiveSceneAt(elapsed float64, durations []int) Position {
	cum := 0.0
	for i, d := range durations {
		dur := float64(d)
		if elapsed < cum+dur {
			return Position{Index: i, Offset: elapsed - cum, CumulativeBefore: cum}
		}
		cum += dur
	}
	last := len(durations) - 1
	lastDur := float64(durations[last])
	return Position{Index: last, Offset: lastDur, CumulativeBefore: cum - lastDur}
}
