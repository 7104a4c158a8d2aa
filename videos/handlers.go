package videos

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/tasks"
)

type Handler struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

func NewHandler(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{DB: db, Redis: rdb, Logger: logger}
}

type CreateVideoRequest struct {
	Prompt string `json:"prompt"`
	Story  string `json:"story"`
	Style  string `json:"style"`
}

// CreateVideo records a new video and queues it for generation. Either a
// prompt or a story is required; style defaults downstream.
func (h *Handler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Prompt == "" && req.Story == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either prompt or story is required"})
		return
	}

	video := models.Video{
		PublicID: uuid.NewString(),
		Prompt:   req.Prompt,
		Story:    req.Story,
		Style:    req.Style,
		Status:   "idle",
		Message:  "Queued for generation",
	}
	if err := h.DB.Create(&video).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create video"})
		return
	}

	payload, err := tasks.Marshal(tasks.GenerationTaskPayload{VideoID: video.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video"})
		return
	}
	if err := h.Redis.LPush(c.Request.Context(), tasks.QueueVideoGeneration, payload).Err(); err != nil {
		h.Logger.Error("failed to enqueue generation task",
			zap.Uint("video_id", video.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video"})
		return
	}

	c.JSON(http.StatusOK, video)
}

// GetVideo returns one video by its public id.
func (h *Handler) GetVideo(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, video)
}

// GetVideoScenes returns a video's scenes in playback order.
func (h *Handler) GetVideoScenes(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}

	var scenes []models.Scene
	if err := h.DB.Where("video_id = ?", video.ID).Order("scene_number asc").Find(&scenes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve scenes"})
		return
	}
	c.JSON(http.StatusOK, scenes)
}

func (h *Handler) findVideo(c *gin.Context) (models.Video, bool) {
	var video models.Video
	err := h.DB.First(&video, "public_id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return models.Video{}, false
	}
	return video, true
}
