package models

import (
	"time"
)

// User represents a forum user
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id"`
	Username  string    `gorm:"type:varchar(60);not null;uniqueIndex:idx_users_username;column:username"`
	Admin     bool      `gorm:"not null;default:false;column:admin"`
	Moderator bool      `gorm:"not null;default:false;column:moderator"`
	Active    bool      `gorm:"not null;default:true;column:active"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user is an admin or a moderator
func (u *User) IsStaff() bool {
	return u != nil && (u.Admin || u.Moderator)
}
