package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const replicateBaseURL = "https://api.replicate.com/v1"

// ImageGenerator produces a hosted image URL from a text prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, imagePrompt string) (string, error)
}

// ReplicateImageGenerator runs a text-to-image model on Replicate and
// re-hosts the output through the media store.
type ReplicateImageGenerator struct {
	httpClient *http.Client
	token      string
	version    string
	store      *MediaStore
	retry      RetryPolicy
	logger     *zap.Logger
}

// NewReplicateImageGenerator expects model as "owner/name:version".
func NewReplicateImageGenerator(token, model string, store *MediaStore, retry RetryPolicy, logger *zap.Logger) (*ReplicateImageGenerator, error) {
	if token == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN environment variable not set")
	}
	version := model
	if idx := strings.LastIndex(model, ":"); idx >= 0 {
		version = model[idx+1:]
	}
	if version == "" {
		return nil, fmt.Errorf("replicate model version missing in %q", model)
	}
	return &ReplicateImageGenerator{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		token:      token,
		version:    version,
		store:      store,
		retry:      retry,
		logger:     logger,
	}, nil
}

type replicateInput struct {
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Scheduler         string  `json:"scheduler"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int     `json:"seed"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func (g *ReplicateImageGenerator) GenerateImage(ctx context.Context, imagePrompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"version": g.version,
		"input": replicateInput{
			Prompt:            imagePrompt,
			Width:             512,
			Height:            512,
			Scheduler:         "K_EULER",
			NumInferenceSteps: 4,
			GuidanceScale:     0,
			Seed:              rand.Intn(1000000),
		},
	})
	if err != nil {
		return "", err
	}

	var prediction replicatePrediction
	err = g.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, replicateBaseURL+"/predictions", bytes.NewReader(body))
		if err != nil {
			return Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.token)
		req.Header.Set("Content-Type", "application/json")
		// wait synchronously for short-running models instead of polling
		req.Header.Set("Prefer", "wait=60")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("replicate API returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(resp.Body)
			return Permanent(fmt.Errorf("replicate API returned %d: %s", resp.StatusCode, data))
		}
		return json.NewDecoder(resp.Body).Decode(&prediction)
	})
	if err != nil {
		return "", fmt.Errorf("image generation request failed: %w", err)
	}

	if prediction.Status == "failed" || prediction.Status == "canceled" {
		return "", fmt.Errorf("prediction %s: %v", prediction.Status, prediction.Error)
	}
	providerURL, err := firstOutputURL(prediction.Output)
	if err != nil {
		return "", err
	}

	g.logger.Debug("image generated", zap.String("prediction_id", prediction.ID))
	return g.rehost(ctx, providerURL)
}

// firstOutputURL handles both output shapes Replicate models use: a list of
// URLs or a single URL string.
func firstOutputURL(output json.RawMessage) (string, error) {
	if len(output) == 0 {
		return "", fmt.Errorf("failed to generate image: no URL returned")
	}
	var urls []string
	if err := json.Unmarshal(output, &urls); err == nil {
		if len(urls) == 0 || urls[0] == "" {
			return "", fmt.Errorf("failed to generate image: no URL returned")
		}
		return urls[0], nil
	}
	var url string
	if err := json.Unmarshal(output, &url); err == nil && url != "" {
		return url, nil
	}
	return "", fmt.Errorf("failed to generate image: unrecognized output shape")
}

func (g *ReplicateImageGenerator) rehost(ctx context.Context, providerURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch image: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return g.store.Save(data, ".png")
}
