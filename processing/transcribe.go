package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/captions"
)

const assemblyAIBaseURL = "https://api.assemblyai.com/v2"

// Transcriber returns word-level timings for a hosted audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) ([]captions.Word, error)
}

// AssemblyAITranscriber submits a transcription job and polls it to
// completion.
type AssemblyAITranscriber struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	retry        RetryPolicy
	logger       *zap.Logger
}

func NewAssemblyAITranscriber(apiKey string, pollInterval time.Duration, retry RetryPolicy, logger *zap.Logger) (*AssemblyAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ASSEMBLYAI_API_KEY environment variable not set")
	}
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &AssemblyAITranscriber{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		apiKey:       apiKey,
		baseURL:      assemblyAIBaseURL,
		pollInterval: pollInterval,
		retry:        retry,
		logger:       logger,
	}, nil
}

type transcriptRequest struct {
	AudioURL     string   `json:"audio_url"`
	WordBoost    []string `json:"word_boost"`
	FormatText   bool     `json:"format_text"`
	Punctuate    bool     `json:"punctuate"`
	LanguageCode string   `json:"language_code"`
}

type transcriptResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Words  []captions.Word `json:"words"`
}

func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audioURL string) ([]captions.Word, error) {
	submitted, err := t.submit(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("submit transcription: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.pollInterval):
		}

		status, err := t.poll(ctx, submitted.ID)
		if err != nil {
			return nil, fmt.Errorf("poll transcription %s: %w", submitted.ID, err)
		}
		switch status.Status {
		case "completed":
			t.logger.Debug("transcription completed",
				zap.String("transcript_id", status.ID),
				zap.Int("words", len(status.Words)))
			return status.Words, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", status.Error)
		}
	}
}

func (t *AssemblyAITranscriber) submit(ctx context.Context, audioURL string) (*transcriptResponse, error) {
	body, err := json.Marshal(transcriptRequest{
		AudioURL:     audioURL,
		WordBoost:    []string{"AI", "video", "generation"},
		FormatText:   true,
		Punctuate:    true,
		LanguageCode: "en_us",
	})
	if err != nil {
		return nil, err
	}

	var submitted transcriptResponse
	err = t.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcript", bytes.NewReader(body))
		if err != nil {
			return Permanent(err)
		}
		req.Header.Set("Authorization", t.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return t.decode(req, &submitted)
	})
	if err != nil {
		return nil, err
	}
	return &submitted, nil
}

func (t *AssemblyAITranscriber) poll(ctx context.Context, id string) (*transcriptResponse, error) {
	var status transcriptResponse
	err := t.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return Permanent(err)
		}
		req.Header.Set("Authorization", t.apiKey)
		return t.decode(req, &status)
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (t *AssemblyAITranscriber) decode(req *http.Request, out *transcriptResponse) error {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("assemblyai returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return Permanent(fmt.Errorf("assemblyai returned %d: %s", resp.StatusCode, data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
