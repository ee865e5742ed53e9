package business

import (
	"time"
)

// Business is the one-to-one profile attached to a user.
type Business struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"-" gorm:"uniqueIndex;not null"`
	Name      string    `json:"business_name" gorm:"size:255;not null"`
	Currency  string    `json:"currency" gorm:"size:3;not null"`
	LogoURL   string    `json:"business_logo" gorm:"size:500"`
	Type      string    `json:"business_type" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

// Currencies supported for business profiles.
var Currencies = []string{"USD", "GBP", "EUR", "NGN", "KES", "ZAR", "GHS"}
