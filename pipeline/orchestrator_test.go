package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/processing"
)

type fakeScript struct {
	resp  *processing.ScriptResponse
	err   error
	calls int
}

func (f *fakeScript) GenerateScript(ctx context.Context, prompt string) (*processing.ScriptResponse, error) {
	f.calls++
	return f.resp, f.err
}

func threeSceneScript() *processing.ScriptResponse {
	return &processing.ScriptResponse{
		Title: "Ocean Wonders",
		Scenes: []processing.ScriptScene{
			{Description: "intro", ImagePrompt: "prompt-0", TextContent: "narration-0"},
			{Description: "middle", ImagePrompt: "prompt-1", TextContent: "narration-1"},
			{Description: "outro", ImagePrompt: "prompt-2", TextContent: "narration-2"},
		},
	}
}

func testCollaborators(script *fakeScript) (Collaborators, *fakeImageGen, *fakeSpeech, *fakeTranscriber) {
	images := &fakeImageGen{}
	speech := &fakeSpeech{}
	transcripts := &fakeTranscriber{}
	return Collaborators{
		Script:      script,
		Images:      images,
		Speech:      speech,
		Transcripts: transcripts,
	}, images, speech, transcripts
}

type progressRecord struct {
	status  Status
	message string
}

func TestExecuteHappyPath(t *testing.T) {
	collab, _, _, _ := testCollaborators(&fakeScript{resp: threeSceneScript()})

	var seen []progressRecord
	orch := New(collab, zap.NewNop(), WithProgress(func(s Status, m string) {
		seen = append(seen, progressRecord{s, m})
	}))

	run, err := orch.Execute(context.Background(), "a video about the ocean")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "Ocean Wonders", run.Title)
	assert.Equal(t, "Video generated successfully!", run.Message)
	require.Len(t, run.Scenes, 3)
	for i, scene := range run.Scenes {
		assert.Equal(t, i+1, scene.SceneNumber)
		assert.NotEmpty(t, scene.ImageURL)
		assert.NotEmpty(t, scene.AudioURL)
		assert.NotEmpty(t, scene.Captions)
	}
	assert.Zero(t, run.Images.FailureCount())
	assert.Zero(t, run.Audio.FailureCount())
	assert.Zero(t, run.Captions.FailureCount())

	// Status walks creating -> processing -> completed, never backwards.
	require.NotEmpty(t, seen)
	assert.Equal(t, StatusCreating, seen[0].status)
	assert.Equal(t, StatusCompleted, seen[len(seen)-1].status)
	rank := map[Status]int{StatusCreating: 0, StatusProcessing: 1, StatusCompleted: 2}
	prev := 0
	for _, rec := range seen {
		r, ok := rank[rec.status]
		require.True(t, ok, "unexpected status %q", rec.status)
		assert.GreaterOrEqual(t, r, prev)
		prev = r
	}
}

func TestExecuteScriptFailureHaltsPipeline(t *testing.T) {
	script := &fakeScript{err: errors.New("model overloaded")}
	collab, images, speech, transcripts := testCollaborators(script)

	orch := New(collab, zap.NewNop())
	run, err := orch.Execute(context.Background(), "anything")

	require.Error(t, err)
	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, "Failed to generate video script", run.Message)
	assert.Contains(t, run.Error, "model overloaded")

	// No downstream stage may run after a fatal script failure.
	assert.Zero(t, images.calls)
	assert.Zero(t, speech.calls)
	assert.Zero(t, transcripts.calls)
}

func TestExecuteEmptyScriptIsFatal(t *testing.T) {
	script := &fakeScript{resp: &processing.ScriptResponse{Title: "Empty"}}
	collab, images, _, _ := testCollaborators(script)

	orch := New(collab, zap.NewNop())
	run, err := orch.Execute(context.Background(), "anything")

	require.ErrorIs(t, err, ErrNoScenes)
	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, "No scenes were generated from the script", run.Message)
	assert.Zero(t, images.calls)
}

func TestExecuteContinuesPastImageFailures(t *testing.T) {
	collab, images, speech, transcripts := testCollaborators(&fakeScript{resp: threeSceneScript()})
	images.reject = map[string]bool{"prompt-1": true}

	orch := New(collab, zap.NewNop())
	run, err := orch.Execute(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 1, run.Images.FailureCount())
	assert.Contains(t, run.Message, "1 of 3 images failed")

	// Audio and captions still ran for every scene.
	assert.Equal(t, 3, speech.calls)
	assert.Equal(t, 3, transcripts.calls)
	assert.Empty(t, run.Scenes[1].ImageURL)
	assert.NotEmpty(t, run.Scenes[1].AudioURL)
	assert.NotEmpty(t, run.Scenes[1].Captions)
}

func TestExecuteReportsAllIssueKinds(t *testing.T) {
	collab, images, speech, _ := testCollaborators(&fakeScript{resp: threeSceneScript()})
	images.reject = map[string]bool{"prompt-0": true}
	speech.reject = map[string]bool{"narration-2": true}

	orch := New(collab, zap.NewNop())
	run, err := orch.Execute(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.True(t, strings.HasPrefix(run.Message, "Video generated with issues:"))
	assert.Contains(t, run.Message, "1 of 3 images failed")
	assert.Contains(t, run.Message, "1 of 3 audio clips failed")
	// The scene with failed audio is skipped by captions, which is a
	// success, not a caption failure.
	assert.Zero(t, run.Captions.FailureCount())
}

func TestExecuteCancelledContext(t *testing.T) {
	collab, _, _, _ := testCollaborators(&fakeScript{resp: threeSceneScript()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(collab, zap.NewNop())
	run, err := orch.Execute(ctx, "anything")

	require.Error(t, err)
	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, "Video generation was interrupted", run.Message)
}

func TestSnapshotIsACopy(t *testing.T) {
	collab, _, _, _ := testCollaborators(&fakeScript{resp: threeSceneScript()})
	orch := New(collab, zap.NewNop())

	run, err := orch.Execute(context.Background(), "anything")
	require.NoError(t, err)

	snap := orch.Snapshot()
	require.Len(t, snap.Scenes, 3)
	snap.Scenes[0].Description = "mutated"
	assert.NotEqual(t, "mutated", orch.Snapshot().Scenes[0].Description)
	assert.Equal(t, run.Status, orch.Snapshot().Status)
}
