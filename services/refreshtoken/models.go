package refreshtoken

import (
	"time"
)

// RefreshToken is one ledger record. Tokens are stored as a SHA-256
// hash of the opaque string handed to the client; the hash column is
// the lookup key. Revocation is a soft flag so the ledger doubles as
// an audit trail of issued sessions.
type RefreshToken struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	UserID        uint       `json:"user_id" gorm:"not null;index"`
	TokenHash     string     `json:"-" gorm:"uniqueIndex;size:255;not null"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at" gorm:"not null;index"`
	Invalidated   bool       `json:"invalidated" gorm:"not null;default:false;index"`
	InvalidatedAt *time.Time `json:"invalidated_at"`
	DeviceInfo    string     `json:"device_info" gorm:"size:500"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// TokenData carries the plaintext token back to the caller once; only
// the hash survives in the ledger.
type TokenData struct {
	Token     string
	TokenID   uint
	ExpiresAt time.Time
}
