package models

import (
	"time"

	"gorm.io/gorm"
)

// Post action types
const (
	PostActionTypeBookmark int16 = 1
	PostActionTypeLike     int16 = 2
	PostActionTypeOffTopic int16 = 3
	PostActionTypeSpam     int16 = 8
)

// PostAction represents a reaction or flag placed by a user on a post
type PostAction struct {
	ID               int64          `gorm:"primaryKey;autoIncrement;column:id"`
	PostID           int64          `gorm:"not null;index:idx_post_actions_post_user,priority:1;column:post_id"`
	UserID           int64          `gorm:"not null;index:idx_post_actions_post_user,priority:2;column:user_id"`
	PostActionTypeID int16          `gorm:"type:smallint;not null;column:post_action_type_id"`
	CreatedAt        time.Time      `gorm:"not null;column:created_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index;column:deleted_at"`
}

// TableName specifies the table name for PostAction
func (PostAction) TableName() string {
	return "post_actions"
}
