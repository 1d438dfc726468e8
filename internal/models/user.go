package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// User is a registered account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"size:30;not null" json:"username"`
	Email     string         `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Identity returns the acting identity for the user.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:          strconv.FormatUint(uint64(u.ID), 10),
		DisplayName: u.Username,
	}
}
