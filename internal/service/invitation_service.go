package service

import (
	"errors"
	"time"

	"workspace-service/internal/apperror"
	"workspace-service/internal/mailer"
	"workspace-service/internal/model"
	"workspace-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InvitationService manages the lifecycle of workspace invitations:
// issued by an admin, consumed once on acceptance, or revoked.
type InvitationService struct {
	db     *gorm.DB
	mailer mailer.Mailer
	log    *zap.Logger
	ttl    time.Duration
}

// NewInvitationService creates an InvitationService.
func NewInvitationService(db *gorm.DB, m mailer.Mailer, log *zap.Logger, ttl time.Duration) *InvitationService {
	return &InvitationService{db: db, mailer: m, log: log, ttl: ttl}
}

func validRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleUser
}

// Create issues an invitation for an email address to join a workspace.
// The inviter must hold the ADMIN role there. An existing invitation for
// the same (email, workspace) pair is replaced so its token and expiry are
// refreshed. The invitation email is sent best-effort after the write.
func (s *InvitationService) Create(inviterID, workspaceID uint, email, role string) (*model.Invitation, error) {
	if email == "" {
		return nil, apperror.Validation("email is required")
	}
	if role == "" {
		role = model.RoleUser
	}
	if !validRole(role) {
		return nil, apperror.Validation("role must be ADMIN or USER")
	}

	var inviter model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", inviterID, workspaceID).First(&inviter).Error
	if err != nil || inviter.Role != model.RoleAdmin {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, apperror.Forbidden()
	}

	var workspace model.Workspace
	if err := s.db.First(&workspace, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.WorkspaceNotFound()
		}
		return nil, err
	}

	// Conflict when the invitee already holds a profile in the workspace.
	var invitee model.User
	err = s.db.Where("email = ?", email).First(&invitee).Error
	if err == nil {
		var existing model.Profile
		err = s.db.Where("user_id = ? AND workspace_id = ?", invitee.ID, workspaceID).First(&existing).Error
		if err == nil {
			return nil, apperror.ProfileExists()
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	invitation := model.Invitation{
		Email:       email,
		WorkspaceID: workspaceID,
		Role:        role,
		Token:       model.GenerateSecureToken(),
		ExpiresAt:   time.Now().Add(s.ttl),
		InviterID:   inviterID,
	}

	// Replace any stale invitation for the same (email, workspace) pair.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ? AND workspace_id = ?", email, workspaceID).Delete(&model.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Create(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendInvitationEmail(email, workspace.Name, invitation.Token); err != nil {
		prometheus.RecordEmail("invitation", "failure")
		s.log.Error("Failed to send invitation email",
			zap.String("email", email),
			zap.Uint("workspace_id", workspaceID),
			zap.Error(err))
	} else {
		prometheus.RecordEmail("invitation", "success")
	}

	return &invitation, nil
}

// AcceptParams carries the accepting identity. UserID is set when the
// caller is authenticated; Name and Password feed just-in-time account
// creation when they are not.
type AcceptParams struct {
	UserID   *uint
	Name     string
	Password string
}

// AcceptResult carries the membership created by a successful acceptance.
type AcceptResult struct {
	User      *model.User
	Workspace *model.Workspace
	Profile   *model.Profile
}

// Accept consumes an invitation token. The token is single use: the
// invitation row is deleted in the same transaction that creates the
// profile. An authenticated acceptor's email must match the invitation's
// target email; an unauthenticated acceptor without an existing account
// gets one created from the supplied name and password.
func (s *InvitationService) Accept(token string, params AcceptParams) (*AcceptResult, error) {
	var invitation model.Invitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvitationNotFound()
		}
		return nil, err
	}

	if invitation.Expired() {
		return nil, apperror.TokenExpired("invitation has expired")
	}

	var workspace model.Workspace
	if err := s.db.First(&workspace, invitation.WorkspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.WorkspaceNotFound()
		}
		return nil, err
	}

	var user model.User
	createUser := false

	if params.UserID != nil {
		if err := s.db.First(&user, *params.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.UserNotFound()
			}
			return nil, err
		}
		// A stolen token must not grant access to a different identity.
		if user.Email != invitation.Email {
			return nil, apperror.EmailMismatch()
		}
	} else {
		err := s.db.Where("email = ?", invitation.Email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := ValidatePassword(params.Password); err != nil {
				return nil, err
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			user = model.User{
				Email:    invitation.Email,
				Password: string(hashed),
				Name:     params.Name,
			}
			createUser = true
		} else if err != nil {
			return nil, err
		}
	}

	if !createUser {
		var existing model.Profile
		err := s.db.Where("user_id = ? AND workspace_id = ?", user.ID, invitation.WorkspaceID).First(&existing).Error
		if err == nil {
			return nil, apperror.ProfileExists()
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	profile := model.Profile{
		WorkspaceID: invitation.WorkspaceID,
		Name:        params.Name,
		Role:        invitation.Role,
	}
	if profile.Name == "" {
		profile.Name = user.Name
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if createUser {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		}
		profile.UserID = user.ID

		// First membership becomes the default.
		var defaults int64
		if err := tx.Model(&model.Profile{}).Where("user_id = ? AND is_default = ?", user.ID, true).Count(&defaults).Error; err != nil {
			return err
		}
		profile.IsDefault = defaults == 0

		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		return tx.Delete(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	return &AcceptResult{User: &user, Workspace: &workspace, Profile: &profile}, nil
}

// List returns the pending invitations of a workspace. ADMIN only.
func (s *InvitationService) List(actorID, workspaceID uint) ([]model.Invitation, error) {
	var actor model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", actorID, workspaceID).First(&actor).Error
	if err != nil || actor.Role != model.RoleAdmin {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, apperror.Forbidden()
	}

	var invitations []model.Invitation
	if err := s.db.Where("workspace_id = ?", workspaceID).Order("id").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// Revoke deletes a pending invitation. ADMIN only.
func (s *InvitationService) Revoke(actorID, invitationID uint) error {
	var invitation model.Invitation
	if err := s.db.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.InvitationNotFound()
		}
		return err
	}

	var actor model.Profile
	err := s.db.Where("user_id = ? AND workspace_id = ?", actorID, invitation.WorkspaceID).First(&actor).Error
	if err != nil || actor.Role != model.RoleAdmin {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return apperror.Forbidden()
	}

	return s.db.Delete(&invitation).Error
}
