// main.go
package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkSkews1/ai-vid-gen/internal/config"
	"github.com/MarkSkews1/ai-vid-gen/internal/platform"
	"github.com/MarkSkews1/ai-vid-gen/videos"
)

type Server struct {
	Cfg    config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
	Router *gin.Engine
}

func NewServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	// Use the shared connection initializers
	db := platform.NewDBConnection(cfg)
	rdb := platform.NewRedisClient(cfg)

	router := gin.Default()

	// Add CORS middleware for the frontend
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		Cfg:    cfg,
		DB:     db,
		Redis:  rdb,
		Logger: logger,
		Router: router,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "AI Video Generator API v1"})
	})

	videoHandler := videos.NewHandler(s.DB, s.Redis, s.Logger)

	videoRoutes := s.Router.Group("/videos")
	{
		videoRoutes.POST("", videoHandler.CreateVideo)
		videoRoutes.GET("/:id", videoHandler.GetVideo)
		videoRoutes.GET("/:id/scenes", videoHandler.GetVideoScenes)
		videoRoutes.GET("/:id/playback", videoHandler.HandlePlaybackSocket)
	}

	// Generated images and audio clips are served from local disk.
	s.Router.Static("/media", s.Cfg.MediaDir)
}

func (s *Server) Run() error {
	log.Printf("Server starting on port %s", s.Cfg.Port)
	return s.Router.Run(":" + s.Cfg.Port)
}

func main() {
	server, err := NewServer()
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	if err := server.Run(); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
