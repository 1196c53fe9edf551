package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace represents a tenant boundary. Members join through Profile
// records; pending members are tracked through Invitation records.
type Workspace struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	OwnerID   uint           `json:"owner_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Profiles    []Profile    `json:"profiles,omitempty" gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE"`
	Invitations []Invitation `json:"invitations,omitempty" gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE"`
}
