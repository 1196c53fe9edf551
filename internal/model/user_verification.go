package model

import "time"

// UserVerification is a single-use email verification challenge. The row
// is deleted on successful verification and replaced on expiry, so a token
// can never be replayed.
type UserVerification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token has passed its expiry.
func (v *UserVerification) Expired() bool {
	return time.Now().After(v.ExpiresAt)
}
