package captions

import "strings"

// Word is a single transcribed word with millisecond timing, as returned by
// the transcription provider.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Segment is a display-ready caption chunk covering one or more words.
type Segment struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Words []Word `json:"words"`
}

// maxSegmentWords keeps segments at subtitle size (~2-4s of speech).
const maxSegmentWords = 7

// Align groups word-level timestamps into caption segments. A segment closes
// once it holds maxSegmentWords words or its latest word ends a sentence; the
// boundary word stays in the closing segment. A trailing partial segment is
// flushed as-is. Zero words yields zero segments.
func Align(words []Word) []Segment {
	var segments []Segment
	var current []Word

	for _, w := range words {
		current = append(current, w)
		if len(current) >= maxSegmentWords || endsSentence(w.Text) {
			segments = append(segments, newSegment(current))
			current = nil
		}
	}
	if len(current) > 0 {
		segments = append(segments, newSegment(current))
	}
	return segments
}

// ActiveSegmentAt returns the index of the segment covering the given
// millisecond offset within a scene, or false when no segment covers it
// (silence between segments, or before/after all speech).
func ActiveSegmentAt(segments []Segment, ms int) (int, bool) {
	for i, seg := range segments {
		if ms >= seg.Start && ms <= seg.End {
			return i, true
		}
	}
	return 0, false
}

func newSegment(words []Word) Segment {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return Segment{
		Text:  strings.Join(parts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
		Words: words,
	}
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}
