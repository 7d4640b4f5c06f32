package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post types
const (
	PostTypeRegular         int16 = 1
	PostTypeModeratorAction int16 = 2
	PostTypeSmallAction     int16 = 3
	PostTypeWhisper         int16 = 4
)

// Post represents a post in a topic
type Post struct {
	ID         int64          `gorm:"primaryKey;autoIncrement;column:id"`
	TopicID    int64          `gorm:"not null;index:idx_posts_topic_user,priority:1;column:topic_id"`
	UserID     int64          `gorm:"not null;index:idx_posts_topic_user,priority:2;column:user_id"`
	PostNumber int32          `gorm:"not null;column:post_number"`
	PostType   int16          `gorm:"type:smallint;not null;default:1;column:post_type"`
	Raw        string         `gorm:"type:text;not null;default:'';column:raw"`
	CreatedAt  time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt  time.Time      `gorm:"not null;column:updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index;column:deleted_at"`

	// SecureHideData is written by the content extractor when the cooked post
	// contains hidden regions: {"version","mode","actions","blocks"}.
	SecureHideData datatypes.JSON `gorm:"column:secure_hide_data"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// HasSecureHide reports whether hidden-content metadata is stored on the post
func (p *Post) HasSecureHide() bool {
	return len(p.SecureHideData) > 0 && string(p.SecureHideData) != "null"
}
