package processing

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

// SpeechSynthesizer produces a hosted audio URL narrating the given text.
type SpeechSynthesizer interface {
	GenerateAudio(ctx context.Context, text string) (string, error)
}

// GoogleSpeechSynthesizer narrates scene text with Google Cloud
// Text-to-Speech and re-hosts the MP3 through the media store.
type GoogleSpeechSynthesizer struct {
	svc    *texttospeech.Service
	voice  string
	store  *MediaStore
	retry  RetryPolicy
	logger *zap.Logger
}

func NewGoogleSpeechSynthesizer(ctx context.Context, apiKey, voice string, store *MediaStore, retry RetryPolicy, logger *zap.Logger) (*GoogleSpeechSynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set")
	}
	svc, err := texttospeech.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech service: %w", err)
	}
	if voice == "" {
		voice = "en-US-Neural2-F"
	}
	return &GoogleSpeechSynthesizer{
		svc:    svc,
		voice:  voice,
		store:  store,
		retry:  retry,
		logger: logger,
	}, nil
}

func (s *GoogleSpeechSynthesizer) GenerateAudio(ctx context.Context, text string) (string, error) {
	// trailing pause keeps scene audio from cutting off abruptly
	ssml := fmt.Sprintf(`<speak>%s. <break time="500ms"/></speak>`, text)
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Ssml: ssml},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         s.voice,
			SsmlGender:   "FEMALE",
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}

	var resp *texttospeech.SynthesizeSpeechResponse
	err := s.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = s.svc.Text.Synthesize(req).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return "", fmt.Errorf("decode audio content: %w", err)
	}
	s.logger.Debug("audio synthesized", zap.Int("size_bytes", len(data)))
	return s.store.Save(data, ".mp3")
}
