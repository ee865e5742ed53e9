package token

import (
	"time"
)

// Purpose tags a single-use token with the action it authorizes.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Token is a single-use credential. Consumed tokens are retained as an
// audit trail, never deleted.
type Token struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	Token      string     `json:"-" gorm:"uniqueIndex;size:100;not null"`
	Purpose    Purpose    `json:"purpose" gorm:"size:32;not null;index"`
	CreatedAt  time.Time  `json:"created_at"`
	Consumed   bool       `json:"consumed" gorm:"not null;default:false"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

func (Token) TableName() string {
	return "single_use_tokens"
}
