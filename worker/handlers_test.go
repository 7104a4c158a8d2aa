package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarkSkews1/ai-vid-gen/models"
)

func TestBuildPrompt(t *testing.T) {
	video := models.Video{Prompt: "space exploration", Style: "anime"}
	prompt := BuildPrompt(video)
	assert.Contains(t, prompt, "30 second long space exploration video script")
	assert.Contains(t, prompt, "in anime format")
	assert.Contains(t, prompt, "'imagePrompt' and 'textContent'")
}

func TestBuildPromptFallsBackToStory(t *testing.T) {
	video := models.Video{Story: "a dragon who learns to fly"}
	prompt := BuildPrompt(video)
	assert.Contains(t, prompt, "a dragon who learns to fly")
	assert.Contains(t, prompt, "in realistic format")
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := BuildPrompt(models.Video{})
	assert.Contains(t, prompt, "interesting historical facts")
	assert.Contains(t, prompt, "in realistic format")
}
