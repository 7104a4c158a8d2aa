package models

import (
	"time"

	"github.com/MarkSkews1/ai-vid-gen/captions"
)

// Scene is one narrative unit of a video. The script stage creates it with
// Description/TextContent/ImagePrompt; the image, audio and caption stages
// fill ImageURL, AudioURL and Captions in place. Fields a stage failed to
// produce stay empty.
type Scene struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	VideoID     uint               `gorm:"not null;index" json:"video_id"`
	SceneNumber int                `gorm:"not null" json:"scene_number"`
	Description string             `gorm:"type:text" json:"description"`
	TextContent string             `gorm:"type:text;not null" json:"textContent"`
	ImagePrompt string             `gorm:"type:text;not null" json:"imagePrompt"`
	ImageURL    string             `gorm:"type:text" json:"imageUrl"`
	AudioURL    string             `gorm:"type:text" json:"audio"`
	Captions    []captions.Segment `gorm:"serializer:json" json:"captions"`
	// Metadata keeps whatever extra fields the script generator returned
	// beyond the required ones.
	Metadata  map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Scene) TableName() string {
	return "video_scenes"
}
