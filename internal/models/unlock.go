package models

import (
	"time"
)

// Unlock records that a user satisfied the hidden-content requirement of a post.
// Rows are created once and never updated.
type Unlock struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_secure_hide_unlocks_user_post,priority:1;column:user_id"`
	PostID      int64     `gorm:"not null;uniqueIndex:idx_secure_hide_unlocks_user_post,priority:2;index:idx_secure_hide_unlocks_post;column:post_id"`
	UnlockedAt  time.Time `gorm:"not null;column:unlocked_at"`
	UnlockedVia string    `gorm:"type:varchar(16);not null;column:unlocked_via"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Unlock
func (Unlock) TableName() string {
	return "secure_hide_unlocks"
}
