package videos

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MarkSkews1/ai-vid-gen/models"
	"github.com/MarkSkews1/ai-vid-gen/playback"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlePlaybackSocket upgrades the connection to a websocket and runs a
// playback session over it: the server-side synchronizer drives the client's
// renderer and audio element, and the client streams its time and frame
// events back.
func (h *Handler) HandlePlaybackSocket(c *gin.Context) {
	video, ok := h.findVideo(c)
	if !ok {
		return
	}

	var scenes []models.Scene
	if err := h.DB.Where("video_id = ?", video.ID).Order("scene_number asc").Find(&scenes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve scenes"})
		return
	}
	if len(scenes) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Video has no scenes to play"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.Logger.With(zap.String("video", video.PublicID))
	bridge := playback.NewBridge(conn, logger)
	sync := playback.NewSynchronizer(scenes, bridge.Renderer(), bridge.Audio(),
		playback.WithLogger(logger))
	defer sync.Pause()

	logger.Info("playback session started", zap.Int("scenes", len(scenes)))
	if err := bridge.Listen(c.Request.Context(), sync); err != nil {
		logger.Info("playback session ended", zap.Error(err))
	}
}
