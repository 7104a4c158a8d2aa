package models

import (
	"time"
)

// Video is one pipeline run: a prompt submitted by a user, progressively
// enriched by the generation stages. Status and Message mirror the
// orchestrator's progress so the UI can poll or subscribe.
type Video struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PublicID  string    `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	Story     string    `gorm:"size:255" json:"story"`
	Style     string    `gorm:"size:64" json:"style"`
	Title     string    `gorm:"size:255" json:"title"`
	Status    string    `gorm:"default:'idle'" json:"status"`
	Message   string    `gorm:"size:255" json:"message"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}
