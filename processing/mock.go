package processing

import (
	"context"
	"strings"

	"github.com/MarkSkews1/ai-vid-gen/captions"
)

// Lightweight sample-mode collaborators: they stand in for the paid TTS and
// transcription APIs during development so the rest of the pipeline can be
// exercised without burning quota. Both are deterministic for a given input.

var sampleAudioURLs = []string{
	"https://res.cloudinary.com/demo/video/upload/v1624523009/samples/audio1.mp3",
	"https://res.cloudinary.com/demo/video/upload/v1624523009/samples/audio2.mp3",
	"https://res.cloudinary.com/demo/video/upload/v1624523009/samples/audio3.mp3",
	"https://res.cloudinary.com/demo/video/upload/v1624523009/samples/audio4.mp3",
	"https://res.cloudinary.com/demo/video/upload/v1624523009/samples/audio5.mp3",
}

// SampleSpeechSynthesizer picks a hosted sample clip keyed on the text, so
// the same scene always maps to the same clip.
type SampleSpeechSynthesizer struct {
	URLs []string
}

func NewSampleSpeechSynthesizer() *SampleSpeechSynthesizer {
	return &SampleSpeechSynthesizer{URLs: sampleAudioURLs}
}

func (s *SampleSpeechSynthesizer) GenerateAudio(_ context.Context, text string) (string, error) {
	return s.URLs[textHash(text)%len(s.URLs)], nil
}

var sampleSentences = []string{
	"This is a sample caption for testing.",
	"It helps developers reduce API calls during development.",
	"And it saves costs while working on the UI.",
	"Here you can create amazing videos with AI.",
	"Every scene gets narration, images and captions automatically.",
}

// SampleTranscriber fabricates evenly spaced word timings from canned
// sentences instead of transcribing the audio.
type SampleTranscriber struct {
	// WordDurationMs controls the synthetic pace; 300ms per word by default.
	WordDurationMs int
}

func NewSampleTranscriber() *SampleTranscriber {
	return &SampleTranscriber{WordDurationMs: 300}
}

func (t *SampleTranscriber) Transcribe(_ context.Context, audioURL string) ([]captions.Word, error) {
	step := t.WordDurationMs
	if step <= 0 {
		step = 300
	}

	// pick a stable pair of sentences per audio URL
	first := textHash(audioURL) % len(sampleSentences)
	text := sampleSentences[first] + " " + sampleSentences[(first+1)%len(sampleSentences)]

	var words []captions.Word
	cursor := 0
	for _, token := range strings.Fields(text) {
		words = append(words, captions.Word{
			Text:       token,
			Start:      cursor,
			End:        cursor + step,
			Confidence: 0.99,
		})
		cursor += step + 20
	}
	return words, nil
}

func textHash(text string) int {
	sum := 0
	for _, c := range text {
		sum += int(c)
	}
	if sum < 0 {
		sum = -sum
	}
	return sum
}
