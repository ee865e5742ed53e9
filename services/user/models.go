package user

import (
	"time"
)

type User struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username        string     `json:"username" gorm:"size:150"`
	PasswordHash    string     `json:"-" gorm:"size:255;not null"`
	EmailVerified   bool       `json:"email_verified" gorm:"not null;default:false"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastActivity    *time.Time `json:"-"`
	RememberMe      bool       `json:"-" gorm:"not null;default:false"`
	Active          bool       `json:"-" gorm:"not null;default:true"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
