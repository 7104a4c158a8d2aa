package tasks

import (
	"encoding/json"
	"fmt"
)

// QueueVideoGeneration carries full generation runs: script, images, audio
// and captions for one video, end to end.
const QueueVideoGeneration = "q_video_generation"

// GenerationTaskPayload is the payload for QueueVideoGeneration.
type GenerationTaskPayload struct {
	VideoID uint `json:"video_id"`
}

// ProgressMessage is published on the video's progress channel as the
// pipeline moves through its stages.
type ProgressMessage struct {
	VideoID uint   `json:"video_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProgressChannel names the Redis pub/sub channel for one video's progress.
func ProgressChannel(videoID uint) string {
	return fmt.Sprintf("video_progress:%d", videoID)
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
