package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user account stored in the database.
// A user holds one profile per workspace they belong to.
type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Email         string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password      string         `json:"-" gorm:"type:varchar(255)"`
	Name          string         `json:"name" gorm:"type:varchar(100)"`
	EmailVerified bool           `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	Profiles []Profile `json:"profiles,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
