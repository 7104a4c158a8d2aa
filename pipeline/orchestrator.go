package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/processing"
)

// Status is the lifecycle state of one pipeline run. Transitions are
// monotonic: idle -> creating -> processing -> completed, with error
// absorbing from creating or processing. A new submission always starts a
// fresh run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusCreating   Status = "creating"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Collaborators are the external capabilities the pipeline drives. Each may
// reject per call; retry behavior belongs to the implementations.
type Collaborators struct {
	Script      processing.ScriptGenerator
	Images      processing.ImageGenerator
	Speech      processing.SpeechSynthesizer
	Transcripts processing.Transcriber
}

// Run is a snapshot of one pipeline run.
type Run struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message"`
	Title    string         `json:"title"`
	Scenes   []models.Scene `json:"scenes"`
	Images   StageResult    `json:"images"`
	Audio    StageResult    `json:"audio"`
	Captions StageResult    `json:"captions"`
	Error    string         `json:"error,omitempty"`
}

// ProgressFunc observes status/message transitions so a UI can reflect
// progress without polling internal state.
type ProgressFunc func(status Status, message string)

// Orchestrator drives the four generation stages in order: script ->
// images -> audio -> captions. Image and audio requests within a stage run
// concurrently; stages themselves are strictly sequential because each
// consumes the previous stage's enriched scenes.
type Orchestrator struct {
	collab     Collaborators
	logger     *zap.Logger
	onProgress ProgressFunc

	mu  sync.Mutex
	run Run
}

type Option func(*Orchestrator)

func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

func New(collab Collaborators, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		collab: collab,
		logger: logger,
		run:    Run{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns a copy of the current run state, safe to read while a
// stage is in flight.
func (o *Orchestrator) Snapshot() Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := o.run
	snap.Scenes = append([]models.Scene(nil), o.run.Scenes...)
	return snap
}

// Execute runs the whole pipeline for one prompt. Per-scene failures in the
// image, audio and caption stages are recorded but never abort the run; only
// a fatal script stage error, or cancellation, halts it.
func (o *Orchestrator) Execute(ctx context.Context, prompt string) (Run, error) {
	o.setState(StatusCreating, "Generating script with AI...")

	resp, err := o.collab.Script.GenerateScript(ctx, prompt)
	if err != nil {
		return o.fail("Failed to generate video script", err)
	}

	o.setMessage("Processing AI response...")
	scenes, err := BuildScenes(resp)
	if err != nil {
		return o.fail("No scenes were generated from the script", err)
	}
	o.mu.Lock()
	o.run.Title = resp.Title
	o.run.Scenes = scenes
	o.mu.Unlock()
	o.logger.Info("video script generated",
		zap.String("title", resp.Title),
		zap.Int("scenes", len(scenes)))

	o.setState(StatusProcessing, "Generating images from the script...")
	scenes, imageRes := RunImageStage(ctx, scenes, o.collab.Images, o.itemProgress("Generating image %d of %d..."))
	o.record(scenes, func(r *Run) { r.Images = imageRes })
	if err := ctx.Err(); err != nil {
		return o.fail("Video generation was interrupted", err)
	}
	if n := imageRes.FailureCount(); n > 0 {
		o.logger.Warn("image stage had failures", zap.Int("failed", n), zap.Int("total", len(scenes)))
	}

	o.setMessage("Generating audio for scenes...")
	scenes, audioRes := RunAudioStage(ctx, scenes, o.collab.Speech, o.itemProgress("Generating audio %d of %d..."))
	o.record(scenes, func(r *Run) { r.Audio = audioRes })
	if err := ctx.Err(); err != nil {
		return o.fail("Video generation was interrupted", err)
	}

	o.setMessage("Generating captions...")
	scenes, captionRes := RunCaptionStage(ctx, scenes, o.collab.Transcripts)
	o.record(scenes, func(r *Run) { r.Captions = captionRes })
	if err := ctx.Err(); err != nil {
		return o.fail("Video generation was interrupted", err)
	}

	message := completionMessage(len(scenes), imageRes, audioRes, captionRes)
	o.setState(StatusCompleted, message)
	return o.Snapshot(), nil
}

// completionMessage distinguishes a clean run from one with partial
// failures; callers may surface it verbatim.
func completionMessage(total int, imageRes, audioRes, captionRes StageResult) string {
	var issues []string
	if n := imageRes.FailureCount(); n > 0 {
		issues = append(issues, fmt.Sprintf("%d of %d images failed", n, total))
	}
	if n := audioRes.FailureCount(); n > 0 {
		issues = append(issues, fmt.Sprintf("%d of %d audio clips failed", n, total))
	}
	if n := captionRes.FailureCount(); n > 0 {
		issues = append(issues, fmt.Sprintf("%d of %d captions failed", n, total))
	}
	if len(issues) == 0 {
		return "Video generated successfully!"
	}
	return "Video generated with issues: " + strings.Join(issues, ", ")
}

func (o *Orchestrator) itemProgress(format string) func(i, n int) {
	return func(i, n int) {
		o.setMessage(fmt.Sprintf(format, i, n))
	}
}

func (o *Orchestrator) record(scenes []models.Scene, update func(*Run)) {
	o.mu.Lock()
	o.run.Scenes = scenes
	update(&o.run)
	o.mu.Unlock()
}

func (o *Orchestrator) setState(status Status, message string) {
	o.mu.Lock()
	o.run.Status = status
	o.run.Message = message
	o.mu.Unlock()
	o.notify(status, message)
}

func (o *Orchestrator) setMessage(message string) {
	o.mu.Lock()
	o.run.Message = message
	status := o.run.Status
	o.mu.Unlock()
	o.notify(status, message)
}

func (o *Orchestrator) fail(message string, err error) (Run, error) {
	full := fmt.Sprintf("%s: %v", message, err)
	o.mu.Lock()
	o.run.Status = StatusError
	o.run.Message = message
	o.run.Error = full
	o.mu.Unlock()
	o.logger.Error("pipeline run failed", zap.String("message", message), zap.Error(err))
	o.notify(StatusError, message)
	return o.Snapshot(), fmt.Errorf("%s: %w", message, err)
}

func (o *Orchestrator) notify(status Status, message string) {
	if o.onProgress != nil {
		o.onProgress(status, message)
	}
}
