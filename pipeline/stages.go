package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/MarkSkews1/ai-vid-gen/captions"
	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/processing"
)

// ErrNoScenes means the script stage produced nothing downstream can use.
var ErrNoScenes = errors.New("script stage produced no scenes")

// StageFailure records one scene's failure within a stage.
type StageFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// StageResult separates the scene indexes a stage succeeded on from its
// per-item failures. Every input index appears in exactly one of the two
// collections.
type StageResult struct {
	Succeeded []int          `json:"succeeded"`
	Failures  []StageFailure `json:"failures"`
}

func (r StageResult) FailureCount() int {
	return len(r.Failures)
}

func resultFromErrors(errs []error) StageResult {
	var res StageResult
	for i, err := range errs {
		if err != nil {
			res.Failures = append(res.Failures, StageFailure{Index: i, Error: err.Error()})
		} else {
			res.Succeeded = append(res.Succeeded, i)
		}
	}
	return res
}

// BuildScenes converts the script generator's response into the initial
// scene array. This is the only stage that determines scene count and
// identity, so an empty or missing scene list is fatal rather than a
// per-item failure.
func BuildScenes(resp *processing.ScriptResponse) ([]models.Scene, error) {
	if resp == nil || len(resp.Scenes) == 0 {
		return nil, ErrNoScenes
	}
	scenes := make([]models.Scene, len(resp.Scenes))
	for i, s := range resp.Scenes {
		scenes[i] = models.Scene{
			SceneNumber: i + 1,
			Description: s.Description,
			ImagePrompt: s.ImagePrompt,
			TextContent: s.TextContent,
		}
	}
	return scenes, nil
}

// RunImageStage fills ImageURL for every scene. All requests fire at once;
// results are written back by index, so final scene order never depends on
// completion order. A failing scene keeps an empty ImageURL and never aborts
// the batch.
func RunImageStage(ctx context.Context, scenes []models.Scene, gen processing.ImageGenerator, progress func(i, n int)) ([]models.Scene, StageResult) {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)
	errs := make([]error, len(scenes))

	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if progress != nil {
				progress(i+1, len(out))
			}
			url, err := gen.GenerateImage(ctx, out[i].ImagePrompt)
			if err != nil {
				errs[i] = err
				return
			}
			out[i].ImageURL = url
		}(i)
	}
	wg.Wait()
	return out, resultFromErrors(errs)
}

// RunAudioStage fills AudioURL for every scene under the same concurrent,
// index-addressed contract as the image stage. Scenes without narration text
// are skipped and counted as succeeded.
func RunAudioStage(ctx context.Context, scenes []models.Scene, tts processing.SpeechSynthesizer, progress func(i, n int)) ([]models.Scene, StageResult) {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)
	errs := make([]error, len(scenes))

	var wg sync.WaitGroup
	for i := range out {
		if out[i].TextContent == "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if progress != nil {
				progress(i+1, len(out))
			}
			url, err := tts.GenerateAudio(ctx, out[i].TextContent)
			if err != nil {
				errs[i] = err
				return
			}
			out[i].AudioURL = url
		}(i)
	}
	wg.Wait()
	return out, resultFromErrors(errs)
}

// RunCaptionStage transcribes each scene's audio and groups the words into
// caption segments. Scenes run one at a time to bound concurrent load on the
// transcription service. Scenes with no audio are skipped as successes with
// empty captions; only a transcription error is a per-item failure.
func RunCaptionStage(ctx context.Context, scenes []models.Scene, tr processing.Transcriber) ([]models.Scene, StageResult) {
	out := make([]models.Scene, len(scenes))
	copy(out, scenes)
	errs := make([]error, len(scenes))

	for i := range out {
		if out[i].AudioURL == "" {
			continue
		}
		words, err := tr.Transcribe(ctx, out[i].AudioURL)
		if err != nil {
			errs[i] = err
			continue
		}
		out[i].Captions = captions.Align(words)
	}
	return out, resultFromErrors(errs)
}
