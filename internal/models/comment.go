package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply attached to exactly one post. UserID never changes after creation
// and decides who may edit or delete it.
type Comment struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    string         `gorm:"type:uuid;not null;index" json:"postId"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	UserID    string         `gorm:"type:uuid;not null" json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns an opaque identifier when the caller did not provide one.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
