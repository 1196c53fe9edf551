package model

import "time"

// Invitation represents a pending offer of workspace membership for an
// email address. Issuing a new invitation for the same (email, workspace)
// pair replaces the old record, so the pair stays unique. An invitation is
// deleted when accepted or revoked, never updated in place.
type Invitation struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"type:varchar(100);index;not null"`
	WorkspaceID uint      `json:"workspace_id" gorm:"index;not null"`
	Role        string    `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	Token       string    `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	ExpiresAt   time.Time `json:"expires_at"`
	InviterID   uint      `json:"inviter_id"`
	CreatedAt   time.Time `json:"created_at"`

	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}

// Expired reports whether the invitation can no longer be accepted.
func (i *Invitation) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}
