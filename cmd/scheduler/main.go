package main

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkSkews1/ai-vid-gen/internal/config"
	"github.com/MarkSkews1/ai-vid-gen/internal/platform"
	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/pipeline"
)

// Statuses a run can be stuck in when its worker dies mid-generation.
var inFlightStatuses = []string{
	string(pipeline.StatusCreating),
	string(pipeline.StatusProcessing),
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db := platform.NewDBConnection(cfg)

	c := cron.New()

	if _, err := c.AddFunc("@every 5m", func() {
		markStuckRuns(db, logger, cfg.StuckRunDeadline)
	}); err != nil {
		logger.Fatal("failed to schedule stuck-run sweep", zap.Error(err))
	}

	if _, err := c.AddFunc("@daily", func() {
		purgeOldVideos(db, logger, cfg.RunRetentionDays)
	}); err != nil {
		logger.Fatal("failed to schedule retention sweep", zap.Error(err))
	}

	c.Start()
	defer c.Stop()

	logger.Info("scheduler started")
	select {}
}

// markStuckRuns fails videos that have sat in a generating state longer than
// the deadline. Their worker is assumed dead; the video stays queryable with
// a clear error instead of spinning forever.
func markStuckRuns(db *gorm.DB, logger *zap.Logger, deadline time.Duration) {
	cutoff := time.Now().Add(-deadline)
	res := db.Model(&models.Video{}).
		Where("status IN ? AND updated_at < ?", inFlightStatuses, cutoff).
		Updates(map[string]interface{}{
			"status": string(pipeline.StatusError),
			"error":  fmt.Sprintf("Generation timed out after %s", deadline),
		})
	if res.Error != nil {
		logger.Error("failed to mark stuck runs", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		logger.Warn("marked stuck runs as failed", zap.Int64("count", res.RowsAffected))
	}
}

// purgeOldVideos deletes completed and failed videos past the retention
// window, scenes included.
func purgeOldVideos(db *gorm.DB, logger *zap.Logger, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var videos []models.Video
	err := db.Where("status IN ? AND updated_at < ?",
		[]string{string(pipeline.StatusCompleted), string(pipeline.StatusError)}, cutoff).
		Find(&videos).Error
	if err != nil {
		logger.Error("failed to query expired videos", zap.Error(err))
		return
	}
	if len(videos) == 0 {
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, video := range videos {
			if err := tx.Where("video_id = ?", video.ID).Delete(&models.Scene{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&video).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to purge expired videos", zap.Error(err))
		return
	}
	logger.Info("purged expired videos", zap.Int("count", len(videos)))
}
