package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/pipeline"
	"github.com/MarkSkews1/ai-vid-gen/tasks"
)

// HandleVideoGeneration processes tasks from QueueVideoGeneration: it runs
// the full pipeline for one video and persists the result. Status and
// message updates are mirrored to the database and published to the video's
// progress channel so clients can follow along.
func (p *Processor) HandleVideoGeneration(ctx context.Context, payload string) error {
	var task tasks.GenerationTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return err
	}

	var video models.Video
	if err := p.DB.First(&video, task.VideoID).Error; err != nil {
		return err
	}
	logger := p.Logger.With(zap.Uint("video_id", video.ID))
	logger.Info("starting video generation")

	progress := func(status pipeline.Status, message string) {
		p.DB.Model(&video).Updates(map[string]interface{}{
			"status":  string(status),
			"message": message,
		})
		p.publishProgress(ctx, video.ID, string(status), message)
	}

	orch := pipeline.New(p.Collab, logger, pipeline.WithProgress(progress))
	run, err := orch.Execute(ctx, BuildPrompt(video))
	if err != nil {
		p.DB.Model(&video).Updates(map[string]interface{}{
			"status": string(pipeline.StatusError),
			"error":  run.Error,
		})
		return err
	}

	err = p.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", video.ID).Delete(&models.Scene{}).Error; err != nil {
			return err
		}
		for i := range run.Scenes {
			run.Scenes[i].ID = 0
			run.Scenes[i].VideoID = video.ID
			if err := tx.Create(&run.Scenes[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&video).Updates(map[string]interface{}{
			"title":  run.Title,
			"status": string(run.Status),
		}).Error
	})
	if err != nil {
		p.DB.Model(&video).Updates(map[string]interface{}{
			"status": string(pipeline.StatusError),
			"error":  fmt.Sprintf("failed to save generated scenes: %v", err),
		})
		return err
	}

	logger.Info("video generation finished",
		zap.String("title", run.Title),
		zap.Int("scenes", len(run.Scenes)),
		zap.Int("image_failures", run.Images.FailureCount()),
		zap.Int("audio_failures", run.Audio.FailureCount()),
		zap.Int("caption_failures", run.Captions.FailureCount()))
	return nil
}

func (p *Processor) publishProgress(ctx context.Context, videoID uint, status, message string) {
	msg, err := tasks.Marshal(tasks.ProgressMessage{
		VideoID: videoID,
		Status:  status,
		Message: message,
	})
	if err != nil {
		return
	}
	if err := p.RDB.Publish(ctx, tasks.ProgressChannel(videoID), msg).Err(); err != nil {
		p.Logger.Warn("failed to publish progress", zap.Uint("video_id", videoID), zap.Error(err))
	}
}

// BuildPrompt assembles the script prompt from the video's request fields.
func BuildPrompt(video models.Video) string {
	topic := video.Prompt
	if topic == "" {
		topic = video.Story
	}
	if topic == "" {
		topic = "interesting historical facts"
	}
	style := video.Style
	if style == "" {
		style = "realistic"
	}
	return fmt.Sprintf(
		"Create a 30 second long %s video script. Include AI image prompt for each scene in %s format. Provide the result in JSON format with 'imagePrompt' and 'textContent' fields.",
		topic, style,
	)
}
