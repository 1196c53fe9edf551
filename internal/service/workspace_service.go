package service

import (
	"errors"

	"workspace-service/internal/apperror"
	"workspace-service/internal/model"

	"gorm.io/gorm"
)

// WorkspaceService implements workspace CRUD, context switching and
// default-profile maintenance.
type WorkspaceService struct {
	db *gorm.DB
}

// NewWorkspaceService creates a WorkspaceService over the given database.
func NewWorkspaceService(db *gorm.DB) *WorkspaceService {
	return &WorkspaceService{db: db}
}

// MembershipFor returns the caller's profile in the workspace, or a
// forbidden error when no membership exists.
func (s *WorkspaceService) MembershipFor(userID, workspaceID uint) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden()
		}
		return nil, err
	}
	return &profile, nil
}

// requireAdmin returns the caller's profile when it holds the ADMIN role
// in the workspace.
func (s *WorkspaceService) requireAdmin(userID, workspaceID uint) (*model.Profile, error) {
	profile, err := s.MembershipFor(userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if profile.Role != model.RoleAdmin {
		return nil, apperror.Forbidden()
	}
	return profile, nil
}

// Create creates a workspace with the caller as its ADMIN member. The new
// profile only becomes the default when the user has no default yet, so
// creating extra workspaces never silently changes the login context.
func (s *WorkspaceService) Create(userID uint, name string) (*model.Workspace, *model.Profile, error) {
	if name == "" {
		return nil, nil, apperror.Validation("name is required")
	}

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.UserNotFound()
		}
		return nil, nil, err
	}

	workspace := model.Workspace{Name: name, OwnerID: userID}
	profile := model.Profile{
		UserID: userID,
		Name:   user.Name,
		Role:   model.RoleAdmin,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var defaults int64
		if err := tx.Model(&model.Profile{}).Where("user_id = ? AND is_default = ?", userID, true).Count(&defaults).Error; err != nil {
			return err
		}
		profile.IsDefault = defaults == 0

		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		profile.WorkspaceID = workspace.ID
		return tx.Create(&profile).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &workspace, &profile, nil
}

// Get returns a workspace the caller is a member of.
func (s *WorkspaceService) Get(userID, workspaceID uint) (*model.Workspace, error) {
	var workspace model.Workspace
	if err := s.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.WorkspaceNotFound()
		}
		return nil, err
	}
	if _, err := s.MembershipFor(userID, workspaceID); err != nil {
		return nil, err
	}
	return &workspace, nil
}

// ListForUser returns every workspace the user belongs to, with the
// membership's role and default flag.
func (s *WorkspaceService) ListForUser(userID uint) ([]model.Profile, error) {
	var profiles []model.Profile
	err := s.db.Preload("Workspace").Where("user_id = ?", userID).Order("id").Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Delete removes a workspace and, in the same transaction, its profiles
// and pending invitations. Only an ADMIN member may delete.
func (s *WorkspaceService) Delete(userID, workspaceID uint) error {
	var workspace model.Workspace
	if err := s.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.WorkspaceNotFound()
		}
		return err
	}
	if _, err := s.requireAdmin(userID, workspaceID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&model.Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&model.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&workspace).Error
	})
}

// Switch resolves the membership needed to issue a token scoped to another
// workspace. Switching never touches the default flag: it is a per-request
// context change, not a preference change.
func (s *WorkspaceService) Switch(userID, workspaceID uint) (*model.Workspace, *model.Profile, error) {
	profile, err := s.MembershipFor(userID, workspaceID)
	if err != nil {
		return nil, nil, err
	}
	var workspace model.Workspace
	if err := s.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.WorkspaceNotFound()
		}
		return nil, nil, err
	}
	return &workspace, profile, nil
}

// MakeDefault marks the user's profile in the given workspace as the
// default. The two writes, clear every sibling flag then set the target,
// run in one transaction so exactly one default survives any prior state.
func (s *WorkspaceService) MakeDefault(userID, workspaceID uint) (*model.Profile, error) {
	var profile model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ProfileNotFound()
		}
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Profile{}).Where("user_id = ?", userID).Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&profile).Update("is_default", true).Error
	})
	if err != nil {
		return nil, err
	}
	profile.IsDefault = true
	return &profile, nil
}

// RemoveMember deletes a member's profile from a workspace. Requires the
// caller to be an ADMIN; the workspace owner cannot be removed. When the
// removed profile was the member's default, another membership is promoted
// so login keeps working.
func (s *WorkspaceService) RemoveMember(actorID, workspaceID, targetUserID uint) error {
	if _, err := s.requireAdmin(actorID, workspaceID); err != nil {
		return err
	}

	var workspace model.Workspace
	if err := s.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.WorkspaceNotFound()
		}
		return err
	}
	if workspace.OwnerID == targetUserID {
		return apperror.Forbidden()
	}

	var profile model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", targetUserID, workspaceID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ProfileNotFound()
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&profile).Error; err != nil {
			return err
		}
		if !profile.IsDefault {
			return nil
		}
		// Promote another membership, if any remains.
		var next model.Profile
		err := tx.Where("user_id = ?", targetUserID).Order("id").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}
