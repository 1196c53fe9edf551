package model

import "time"

// Profile roles within a workspace.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Profile represents a user's membership in one workspace.
// A user has at most one profile per workspace, and across all of a
// user's profiles at most one has IsDefault set. The default profile
// decides the workspace context issued at login.
type Profile struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	WorkspaceID uint      `json:"workspace_id" gorm:"uniqueIndex:idx_workspace_user;not null"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_workspace_user;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100)"`
	Role        string    `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`
	IsDefault   bool      `json:"is_default" gorm:"default:false"`
	Verified    bool      `json:"verified" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Workspace Workspace `json:"workspace,omitempty" gorm:"foreignKey:WorkspaceID"`
}
